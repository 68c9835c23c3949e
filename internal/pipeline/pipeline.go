// Package pipeline coordinates the incrementally-arriving stream of search
// hits with a bounded pool of concurrent fetch workers. The dispatcher
// produces filtered URLs into a work queue as search yields them, workers
// drain it under a fixed concurrency ceiling, and the aggregator folds each
// outcome into the run summary.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webresearch/internal/fetch"
	"github.com/hyperifyio/webresearch/internal/search"
	"github.com/hyperifyio/webresearch/internal/urlfilter"
)

// ErrNoResults means search produced zero usable hits; the run ends early
// with a warning rather than a fatal error.
var ErrNoResults = errors.New("no search results")

// Fetcher is the minimal fetch surface the pipeline needs; fetch.Client
// satisfies it and tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Outcome
}

// Config sizes one run.
type Config struct {
	// SearchResults caps accepted search hits. Default 50. The provider is
	// asked for roughly double to absorb filtering losses.
	SearchResults int
	// FetchCount caps pages fetched; 0 fetches every accepted URL.
	FetchCount int
	// Concurrency is the number of simultaneously in-flight fetches.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.SearchResults <= 0 {
		c.SearchResults = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	return c
}

// acceptCap is the number of URLs actually dispatched: the fetch cap wins
// when it is tighter, so every accepted URL yields exactly one outcome.
func (c Config) acceptCap() int {
	if c.FetchCount > 0 && c.FetchCount < c.SearchResults {
		return c.FetchCount
	}
	return c.SearchResults
}

// Stats accumulates the run counters reported alongside content.
type Stats struct {
	URLsSearched int // accepted search hits dispatched to workers
	URLsFetched  int // successful outcomes
	URLsFiltered int // hits rejected by the URL filter
	FallbackUsed int // successes served by the reader tier
	ContentChars int // total content size across successes
}

// Summary is the materialized result of one run.
type Summary struct {
	Query    string
	Hits     []search.Result
	Outcomes []fetch.Outcome
	Stats    Stats
}

// Runner is the single strategy interface: a streaming concurrent pipeline
// when the network collaborators allow it, or a reduced sequential one.
// Selected once at startup.
type Runner interface {
	Run(ctx context.Context, query string) (*Summary, error)
}

// dispatcher applies the URL filter and the grow-only dedup set to the hit
// stream. It is owned by a single goroutine; workers never touch it.
type dispatcher struct {
	seen     map[string]struct{}
	accepted []search.Result
	filtered int
	cap      int
}

func newDispatcher(cap int) *dispatcher {
	return &dispatcher{seen: map[string]struct{}{}, cap: cap}
}

// admit applies filtering and dedup. It returns the hit to enqueue, or false,
// plus whether the dispatcher wants more hits at all.
func (d *dispatcher) admit(r search.Result) (ok, more bool) {
	if len(d.accepted) >= d.cap {
		return false, false
	}
	if !urlfilter.Accept(r.URL) {
		d.filtered++
		return false, true
	}
	if _, dup := d.seen[r.URL]; dup {
		return false, true
	}
	d.seen[r.URL] = struct{}{}
	d.accepted = append(d.accepted, r)
	return true, len(d.accepted) < d.cap
}

// aggregator consumes completed outcomes and keeps the counters. An optional
// callback receives each outcome as it completes, for streaming output.
type aggregator struct {
	outcomes  []fetch.Outcome
	stats     Stats
	onOutcome func(fetch.Outcome)
}

func (a *aggregator) consume(out fetch.Outcome) {
	a.outcomes = append(a.outcomes, out)
	if out.Success {
		a.stats.URLsFetched++
		a.stats.ContentChars += len(out.Content)
		if out.Source == fetch.SourceFallback {
			a.stats.FallbackUsed++
		}
	} else {
		log.Debug().Str("url", out.URL).Str("reason", out.Err).Msg("fetch failed")
	}
	if a.onOutcome != nil {
		a.onOutcome(out)
	}
}

// Streaming overlaps search and fetch: the provider runs on its own
// goroutine and workers begin fetching before search completes. Outcomes
// complete in arbitrary order.
type Streaming struct {
	Provider search.Provider
	Fetcher  Fetcher
	Config   Config
	// OnOutcome, when set, receives each outcome as it completes.
	OnOutcome func(fetch.Outcome)
}

func (p *Streaming) Run(ctx context.Context, query string) (*Summary, error) {
	cfg := p.Config.withDefaults()
	disp := newDispatcher(cfg.acceptCap())

	queue := make(chan search.Result, cfg.Concurrency)
	results := make(chan fetch.Outcome)

	// Producer: drive search, filter, and enqueue as hits arrive. The search
	// call runs off the consumer goroutine because it may itself block.
	var searchErr error
	go func() {
		defer close(queue)
		searchErr = p.Provider.Search(ctx, query, 2*cfg.SearchResults, func(r search.Result) bool {
			ok, more := disp.admit(r)
			if ok {
				select {
				case queue <- r:
				case <-ctx.Done():
					return false
				}
			}
			return more
		})
		if searchErr != nil {
			log.Warn().Err(searchErr).Str("engine", p.Provider.Name()).Msg("search ended with error")
		}
	}()

	// Worker pool: the worker count is the concurrency ceiling.
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range queue {
				select {
				case results <- p.Fetcher.Fetch(ctx, r.URL):
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	agg := &aggregator{onOutcome: p.OnOutcome}
	for out := range results {
		agg.consume(out)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return finishRun(query, disp, agg, searchErr)
}

// Sequential is the reduced strategy: hits are fetched one at a time in
// search order. Selected when the concurrency ceiling is one.
type Sequential struct {
	Provider  search.Provider
	Fetcher   Fetcher
	Config    Config
	OnOutcome func(fetch.Outcome)
}

func (p *Sequential) Run(ctx context.Context, query string) (*Summary, error) {
	cfg := p.Config.withDefaults()
	disp := newDispatcher(cfg.acceptCap())

	searchErr := p.Provider.Search(ctx, query, 2*cfg.SearchResults, func(r search.Result) bool {
		_, more := disp.admit(r)
		return more
	})
	if searchErr != nil {
		log.Warn().Err(searchErr).Str("engine", p.Provider.Name()).Msg("search ended with error")
	}

	agg := &aggregator{onOutcome: p.OnOutcome}
	for _, r := range disp.accepted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		agg.consume(p.Fetcher.Fetch(ctx, r.URL))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return finishRun(query, disp, agg, searchErr)
}

func finishRun(query string, disp *dispatcher, agg *aggregator, searchErr error) (*Summary, error) {
	if len(disp.accepted) == 0 && searchErr != nil {
		return nil, ErrNoResults
	}
	agg.stats.URLsSearched = len(disp.accepted)
	agg.stats.URLsFiltered = disp.filtered
	return &Summary{
		Query:    query,
		Hits:     disp.accepted,
		Outcomes: agg.outcomes,
		Stats:    agg.stats,
	}, nil
}
