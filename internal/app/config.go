package app

import (
	"time"

	"github.com/hyperifyio/webresearch/internal/extract"
)

// Output formats.
const (
	FormatRaw      = "raw"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// Config holds runtime configuration for one research run.
type Config struct {
	// Search
	SearchResults int
	SearxURL      string
	SearxKey      string
	SearxUA       string
	SearchFile    string // offline JSON provider, mainly for tests

	// Fetch
	FetchCount        int
	MaxContentLength  int
	MinContentLength  int
	Timeout           time.Duration
	Concurrency       int
	FallbackOnBlocked bool
	ReaderURL         string
	ReaderInterval    time.Duration

	// Extraction tuning
	Extract extract.Options

	// Output
	Format     string
	OutputPath string // required for pdf; otherwise stdout when empty
	Stream     bool

	// Optional LLM digest
	Digest     bool
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Behavior
	Quiet   bool
	Verbose bool
}

// DefaultConfig mirrors the CLI flag defaults.
func DefaultConfig() Config {
	return Config{
		SearchResults:    50,
		FetchCount:       0,
		MaxContentLength: 4000,
		MinContentLength: 200,
		Timeout:          20 * time.Second,
		Concurrency:      10,
		Format:           FormatRaw,
	}
}
