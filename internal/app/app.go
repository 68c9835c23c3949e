// Package app wires the pipeline together: provider selection, fetch client
// construction, strategy choice, and output serialization.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/webresearch/internal/digest"
	"github.com/hyperifyio/webresearch/internal/fetch"
	"github.com/hyperifyio/webresearch/internal/llm"
	"github.com/hyperifyio/webresearch/internal/pipeline"
	"github.com/hyperifyio/webresearch/internal/ratelimit"
	"github.com/hyperifyio/webresearch/internal/report"
	"github.com/hyperifyio/webresearch/internal/search"
)

// App owns the constructed collaborators for one process lifetime.
type App struct {
	cfg        Config
	provider   search.Provider
	fetcher    *fetch.Client
	summarizer *digest.Summarizer

	// Out receives the serialized result; defaults to stdout.
	Out io.Writer
}

// New validates the configuration and constructs the collaborators once.
// Strategy choice (streaming vs sequential) also happens here rather than
// being re-decided per call.
func New(cfg Config) (*App, error) {
	switch cfg.Format {
	case FormatRaw, FormatJSON, FormatMarkdown:
	case FormatPDF:
		if cfg.OutputPath == "" {
			return nil, errors.New("pdf output requires an output path")
		}
	default:
		return nil, fmt.Errorf("unknown output format: %q", cfg.Format)
	}
	if cfg.Stream && cfg.Format != FormatRaw {
		return nil, fmt.Errorf("streaming output requires the raw format, not %q", cfg.Format)
	}

	a := &App{cfg: cfg, Out: os.Stdout}

	switch {
	case cfg.SearchFile != "":
		a.provider = &search.FileProvider{Path: cfg.SearchFile}
	case cfg.SearxURL != "":
		a.provider = &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, UserAgent: cfg.SearxUA}
	default:
		a.provider = &search.DuckDuckGo{}
	}

	a.fetcher = &fetch.Client{
		HTTPClient:        &http.Client{},
		Timeout:           cfg.Timeout,
		MinContentLength:  cfg.MinContentLength,
		MaxContentLength:  cfg.MaxContentLength,
		FallbackOnBlocked: cfg.FallbackOnBlocked,
		Reader: &fetch.Reader{
			BaseURL:    cfg.ReaderURL,
			HTTPClient: &http.Client{},
			Timeout:    cfg.Timeout,
		},
		Limiter:        ratelimit.New(cfg.ReaderInterval),
		ExtractOptions: cfg.Extract,
	}

	if cfg.Digest {
		if cfg.LLMModel == "" {
			log.Warn().Msg("digest requested without llm.model; disabled")
		} else {
			oc := openai.DefaultConfig(cfg.LLMAPIKey)
			if cfg.LLMBaseURL != "" {
				oc.BaseURL = cfg.LLMBaseURL
			}
			a.summarizer = &digest.Summarizer{
				Client: &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(oc)},
				Model:  cfg.LLMModel,
			}
		}
	}

	return a, nil
}

// Run executes one research query end to end and serializes the result.
func (a *App) Run(ctx context.Context, query string) error {
	runner := a.buildRunner()

	summary, err := runner.Run(ctx, query)
	switch {
	case errors.Is(err, pipeline.ErrNoResults):
		log.Warn().Str("query", query).Msg("no results found; try a different query")
		summary = &pipeline.Summary{Query: query}
	case err != nil:
		// Cancellation or another top-level failure: batch output is
		// discarded, streaming output already flushed stays as is.
		return err
	}

	log.Info().
		Int("searched", summary.Stats.URLsSearched).
		Int("fetched", summary.Stats.URLsFetched).
		Int("filtered", summary.Stats.URLsFiltered).
		Int("fallback", summary.Stats.FallbackUsed).
		Int("chars", summary.Stats.ContentChars).
		Msg("run complete")

	return a.write(ctx, summary)
}

func (a *App) buildRunner() pipeline.Runner {
	cfg := pipeline.Config{
		SearchResults: a.cfg.SearchResults,
		FetchCount:    a.cfg.FetchCount,
		Concurrency:   a.cfg.Concurrency,
	}
	var onOutcome func(fetch.Outcome)
	if a.cfg.Stream && a.cfg.Format == FormatRaw {
		// Streaming mode flushes each page as it completes; the aggregator
		// invokes the callback from a single goroutine.
		onOutcome = func(o fetch.Outcome) {
			if o.Success {
				fmt.Fprintln(a.Out, report.RawOutcome(o))
			}
		}
	}
	if a.cfg.Concurrency == 1 {
		return &pipeline.Sequential{Provider: a.provider, Fetcher: a.fetcher, Config: cfg, OnOutcome: onOutcome}
	}
	return &pipeline.Streaming{Provider: a.provider, Fetcher: a.fetcher, Config: cfg, OnOutcome: onOutcome}
}

func (a *App) write(ctx context.Context, summary *pipeline.Summary) error {
	var rendered string
	switch a.cfg.Format {
	case FormatPDF:
		return report.WritePDF(summary, a.cfg.OutputPath)
	case FormatJSON:
		s, err := report.JSON(summary)
		if err != nil {
			return err
		}
		rendered = s
	case FormatMarkdown:
		rendered = report.Markdown(summary)
		if d := a.digestSection(ctx, summary); d != "" {
			rendered += "\n## Digest\n\n" + d + "\n"
		}
	default: // raw
		if a.cfg.Stream {
			return nil // already flushed per outcome
		}
		rendered = report.Raw(summary)
	}

	if a.cfg.OutputPath != "" {
		return os.WriteFile(a.cfg.OutputPath, []byte(rendered), 0o644)
	}
	_, err := io.WriteString(a.Out, rendered)
	return err
}

// digestSection is best-effort: digest failures never fail the run.
func (a *App) digestSection(ctx context.Context, summary *pipeline.Summary) string {
	if a.summarizer == nil {
		return ""
	}
	var sources []digest.Source
	for _, o := range summary.Outcomes {
		if o.Success {
			sources = append(sources, digest.Source{URL: o.URL, Title: o.Title, Content: o.Content})
		}
	}
	text, err := a.summarizer.Summarize(ctx, summary.Query, sources)
	if err != nil {
		log.Warn().Err(err).Msg("digest failed; continuing without it")
		return ""
	}
	return text
}
