// Command webresearch discovers pages for a query, fetches them under strict
// concurrency and rate limits, and reduces each to clean readable text.
//
// Usage:
//
//	webresearch "search query" [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webresearch/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath     string
		searchResults  int
		fetchCount     int
		maxLength      int
		minLength      int
		timeoutSec     int
		concurrency    int
		format         string
		outputPath     string
		stream         bool
		quiet          bool
		verbose        bool
		searxURL       string
		searxKey       string
		searxUA        string
		searchFile     string
		readerURL      string
		readerInterval time.Duration
		blockedFB      bool
		digestOn       bool
		llmBase        string
		llmModel       string
		llmKey         string
	)

	defaults := app.DefaultConfig()

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.IntVar(&searchResults, "s", defaults.SearchResults, "Number of search results")
	flag.IntVar(&fetchCount, "f", defaults.FetchCount, "Max pages to fetch (0 = all)")
	flag.IntVar(&maxLength, "m", defaults.MaxContentLength, "Max content length per page")
	flag.IntVar(&minLength, "min", defaults.MinContentLength, "Min content length to accept a page")
	flag.IntVar(&timeoutSec, "t", int(defaults.Timeout/time.Second), "Fetch timeout in seconds")
	flag.IntVar(&concurrency, "c", defaults.Concurrency, "Max concurrent fetches")
	flag.StringVar(&format, "o", defaults.Format, "Output format: raw, json, markdown, pdf")
	flag.StringVar(&outputPath, "out", "", "Write output to file (required for pdf)")
	flag.BoolVar(&stream, "stream", false, "Flush results as pages complete (raw format only)")
	flag.BoolVar(&quiet, "q", false, "Suppress progress messages")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.StringVar(&searxURL, "searx.url", os.Getenv("SEARX_URL"), "SearxNG base URL (switches provider)")
	flag.StringVar(&searxKey, "searx.key", os.Getenv("SEARX_KEY"), "SearxNG API key (optional)")
	flag.StringVar(&searxUA, "searx.ua", "", "Custom User-Agent for SearxNG requests")
	flag.StringVar(&searchFile, "search.file", os.Getenv("SEARCH_FILE"), "Path to JSON file for offline search provider")
	flag.StringVar(&readerURL, "reader.url", "", "Fallback reader base URL")
	flag.DurationVar(&readerInterval, "reader.interval", 0, "Min interval between reader calls (default 500ms)")
	flag.BoolVar(&blockedFB, "blocked.fallback", false, "Route blocked-content pages to the reader instead of failing")
	flag.BoolVar(&digestOn, "digest", false, "Append an LLM digest to markdown output")
	flag.StringVar(&llmBase, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name for the digest")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	query := flag.Arg(0)

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := defaults
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config")
			os.Exit(1)
		}
		fc.Apply(&cfg)
	}

	// Explicit flags take precedence over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "s":
			cfg.SearchResults = searchResults
		case "f":
			cfg.FetchCount = fetchCount
		case "m":
			cfg.MaxContentLength = maxLength
		case "min":
			cfg.MinContentLength = minLength
		case "t":
			cfg.Timeout = time.Duration(timeoutSec) * time.Second
		case "c":
			cfg.Concurrency = concurrency
		case "o":
			cfg.Format = format
		case "out":
			cfg.OutputPath = outputPath
		case "stream":
			cfg.Stream = stream
		case "searx.url":
			cfg.SearxURL = searxURL
		case "searx.key":
			cfg.SearxKey = searxKey
		case "searx.ua":
			cfg.SearxUA = searxUA
		case "search.file":
			cfg.SearchFile = searchFile
		case "reader.url":
			cfg.ReaderURL = readerURL
		case "reader.interval":
			cfg.ReaderInterval = readerInterval
		case "blocked.fallback":
			cfg.FallbackOnBlocked = blockedFB
		case "digest":
			cfg.Digest = digestOn
		case "llm.base":
			cfg.LLMBaseURL = llmBase
		case "llm.model":
			cfg.LLMModel = llmModel
		case "llm.key":
			cfg.LLMAPIKey = llmKey
		}
	})
	cfg.Quiet = quiet
	cfg.Verbose = verbose
	// Env-sourced flag defaults still apply when the flag is unset.
	if cfg.SearxURL == "" {
		cfg.SearxURL = searxURL
	}
	if cfg.SearchFile == "" {
		cfg.SearchFile = searchFile
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = llmBase
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = llmModel
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = llmKey
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("init failed")
		os.Exit(1)
	}

	if err := a.Run(ctx, query); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nInterrupted")
			os.Exit(130)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: webresearch "search query" [flags]

Searches the web, fetches result pages concurrently with a reader-service
fallback, and prints the extracted text.

Flags:
`)
	flag.PrintDefaults()
}
