// Package search defines the boundary to the external search collaborator
// and its provider implementations.
package search

import (
	"context"
	"errors"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Engine  string // provider name for observability
}

// ErrRateLimited is returned when the search engine refuses further queries.
var ErrRateLimited = errors.New("search rate limited")

// Provider streams hits to emit as they are produced so consumers can start
// working before the full result set is known. Emit returns false to stop
// early. A provider error means "no further hits"; hits already emitted
// remain valid.
type Provider interface {
	Search(ctx context.Context, query string, limit int, emit func(Result) bool) error
	Name() string
}
