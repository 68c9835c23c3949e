package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hyperifyio/webresearch/internal/fetch"
	"github.com/hyperifyio/webresearch/internal/search"
)

// fakeProvider emits a fixed hit list, then returns err.
type fakeProvider struct {
	hits []search.Result
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, _ string, _ int, emit func(search.Result) bool) error {
	for _, h := range f.hits {
		if !emit(h) {
			return nil
		}
	}
	return f.err
}

// fakeFetcher records fetched URLs and answers from a canned outcome map.
type fakeFetcher struct {
	mu       sync.Mutex
	fetched  []string
	outcomes map[string]fetch.Outcome
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) fetch.Outcome {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if out, ok := f.outcomes[url]; ok {
		out.URL = url
		return out
	}
	return fetch.Outcome{URL: url, Success: true, Content: "body", Source: fetch.SourceDirect}
}

func (f *fakeFetcher) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func hit(url string) search.Result {
	return search.Result{Title: "t", URL: url, Engine: "fake"}
}

func TestStreamingFiltersAndDeduplicates(t *testing.T) {
	prov := &fakeProvider{hits: []search.Result{
		hit("https://a.example/article"),
		hit("https://www.reddit.com/r/golang"), // blocked domain
		hit("https://a.example/article"),       // duplicate
		hit("https://b.example/file.pdf"),      // skip pattern
		hit("https://c.example/post"),
	}}
	ff := &fakeFetcher{}
	s, err := (&Streaming{Provider: prov, Fetcher: ff, Config: Config{Concurrency: 3}}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Hits) != 2 {
		t.Fatalf("accepted %d hits, want 2: %+v", len(s.Hits), s.Hits)
	}
	if len(s.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want one per accepted URL", len(s.Outcomes))
	}
	if s.Stats.URLsFiltered != 2 {
		t.Fatalf("URLsFiltered = %d, want 2", s.Stats.URLsFiltered)
	}
	if s.Stats.URLsSearched != 2 {
		t.Fatalf("URLsSearched = %d, want 2", s.Stats.URLsSearched)
	}
	urls := ff.urls()
	if len(urls) != 2 {
		t.Fatalf("fetched %d URLs, want 2 (dup must fetch once): %v", len(urls), urls)
	}
}

func TestStreamingFetchCountCaps(t *testing.T) {
	prov := &fakeProvider{hits: []search.Result{
		hit("https://1.example/a"), hit("https://2.example/a"), hit("https://3.example/a"),
		hit("https://4.example/a"), hit("https://5.example/a"),
	}}
	ff := &fakeFetcher{}
	s, err := (&Streaming{Provider: prov, Fetcher: ff, Config: Config{FetchCount: 2}}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Outcomes) != 2 || s.Stats.URLsSearched != 2 {
		t.Fatalf("outcomes=%d searched=%d, want 2/2", len(s.Outcomes), s.Stats.URLsSearched)
	}
}

func TestStreamingStats(t *testing.T) {
	prov := &fakeProvider{hits: []search.Result{
		hit("https://ok.example/a"),
		hit("https://fb.example/a"),
		hit("https://bad.example/a"),
	}}
	ff := &fakeFetcher{outcomes: map[string]fetch.Outcome{
		"https://ok.example/a":  {Success: true, Content: "12345", Source: fetch.SourceDirect},
		"https://fb.example/a":  {Success: true, Content: "1234567", Source: fetch.SourceFallback},
		"https://bad.example/a": {Err: fetch.ErrAllMethodsFailed},
	}}
	s, err := (&Streaming{Provider: prov, Fetcher: ff}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Stats.URLsFetched != 2 {
		t.Fatalf("URLsFetched = %d, want 2", s.Stats.URLsFetched)
	}
	if s.Stats.FallbackUsed != 1 {
		t.Fatalf("FallbackUsed = %d, want 1", s.Stats.FallbackUsed)
	}
	if s.Stats.ContentChars != 12 {
		t.Fatalf("ContentChars = %d, want 12", s.Stats.ContentChars)
	}
	if len(s.Outcomes) != 3 {
		t.Fatalf("every accepted URL needs an outcome, got %d", len(s.Outcomes))
	}
}

func TestSequentialPreservesOrder(t *testing.T) {
	prov := &fakeProvider{hits: []search.Result{
		hit("https://1.example/a"), hit("https://2.example/a"), hit("https://3.example/a"),
	}}
	ff := &fakeFetcher{}
	s, err := (&Sequential{Provider: prov, Fetcher: ff, Config: Config{Concurrency: 1}}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"https://1.example/a", "https://2.example/a", "https://3.example/a"}
	got := ff.urls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("fetch order %v, want %v", got, want)
	}
	for i, o := range s.Outcomes {
		if o.URL != want[i] {
			t.Fatalf("outcome order %v", s.Outcomes)
		}
	}
}

func TestRunNoResults(t *testing.T) {
	prov := &fakeProvider{err: errors.New("engine down")}
	_, err := (&Streaming{Provider: prov, Fetcher: &fakeFetcher{}}).Run(context.Background(), "q")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestRunPartialResultsSurviveSearchError(t *testing.T) {
	prov := &fakeProvider{
		hits: []search.Result{hit("https://ok.example/a")},
		err:  search.ErrRateLimited,
	}
	s, err := (&Streaming{Provider: prov, Fetcher: &fakeFetcher{}}).Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(s.Outcomes))
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prov := &fakeProvider{hits: []search.Result{hit("https://1.example/a")}}
	if _, err := (&Streaming{Provider: prov, Fetcher: &fakeFetcher{}}).Run(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Fatalf("streaming err = %v, want context.Canceled", err)
	}
	if _, err := (&Sequential{Provider: prov, Fetcher: &fakeFetcher{}}).Run(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Fatalf("sequential err = %v, want context.Canceled", err)
	}
}

func TestOnOutcomeCallback(t *testing.T) {
	prov := &fakeProvider{hits: []search.Result{
		hit("https://1.example/a"), hit("https://2.example/a"),
	}}
	var mu sync.Mutex
	var seen []string
	p := &Streaming{Provider: prov, Fetcher: &fakeFetcher{}, OnOutcome: func(o fetch.Outcome) {
		mu.Lock()
		seen = append(seen, o.URL)
		mu.Unlock()
	}}
	if _, err := p.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("callback saw %d outcomes, want 2", len(seen))
	}
}
