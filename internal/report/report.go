// Package report serializes a run summary to the supported output shapes:
// raw text sections, JSON, Markdown, and PDF.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/webresearch/internal/fetch"
	"github.com/hyperifyio/webresearch/internal/pipeline"
)

// record is the per-source JSON output shape.
type record struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

type stats struct {
	URLsSearched int `json:"urls_searched"`
	URLsFetched  int `json:"urls_fetched"`
	ContentChars int `json:"content_chars"`
}

type document struct {
	Query   string   `json:"query"`
	Stats   stats    `json:"stats"`
	Content []record `json:"content"`
}

func successes(sum *pipeline.Summary) []fetch.Outcome {
	out := make([]fetch.Outcome, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		if o.Success {
			out = append(out, o)
		}
	}
	return out
}

// JSON renders the aggregate document with query, stats, and per-source
// records.
func JSON(sum *pipeline.Summary) (string, error) {
	doc := document{
		Query: sum.Query,
		Stats: stats{
			URLsSearched: sum.Stats.URLsSearched,
			URLsFetched:  sum.Stats.URLsFetched,
			ContentChars: sum.Stats.ContentChars,
		},
		Content: []record{},
	}
	for _, o := range successes(sum) {
		doc.Content = append(doc.Content, record{URL: o.URL, Title: o.Title, Content: o.Content, Source: string(o.Source)})
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(b), nil
}

// Raw renders each successful page under a "=== url ===" divider.
func Raw(sum *pipeline.Summary) string {
	var b strings.Builder
	for _, o := range successes(sum) {
		fmt.Fprintf(&b, "=== %s ===\n", o.URL)
		b.WriteString(o.Content)
		b.WriteString("\n\n")
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

// RawOutcome renders one outcome in the raw format, for streaming mode where
// results are flushed as they complete.
func RawOutcome(o fetch.Outcome) string {
	return fmt.Sprintf("=== %s ===\n%s\n", o.URL, o.Content)
}

// Markdown renders a research document with a per-source section each.
const markdownPreviewChars = 2000

func Markdown(sum *pipeline.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research: %s\n\n", sum.Query)
	fmt.Fprintf(&b, "**Sources Analyzed**: %d pages from %d search results\n\n---\n\n",
		sum.Stats.URLsFetched, sum.Stats.URLsSearched)
	for _, o := range successes(sum) {
		title := o.Title
		if title == "" {
			title = o.URL
		}
		fmt.Fprintf(&b, "## %s\n*Source: %s*\n\n", title, o.URL)
		preview := o.Content
		if len(preview) > markdownPreviewChars {
			n := markdownPreviewChars
			for n > 0 && !utf8.RuneStart(preview[n]) {
				n--
			}
			preview = preview[:n] + "..."
		}
		b.WriteString(preview)
		b.WriteString("\n\n---\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
