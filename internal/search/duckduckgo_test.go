package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fgophers&amp;rut=abc">Gophers Underground</a>
  <a class="result__snippet">All about tunnel digging.</a>
</div>
<div class="result">
  <a class="result__a" href="https://blog.example.org/post">Direct Link Post</a>
  <a class="result__snippet">A post linked without the redirect wrapper.</a>
</div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/y.js?ad_provider=bingv7aa&amp;u3=pay">Sponsored Thing</a>
</div>
</body></html>`

func TestDuckDuckGoSearchParsesAndUnwraps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "gophers" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("s") == "" && r.URL.Path == "/" {
			w.Write([]byte(resultsPage))
			return
		}
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	d := &DuckDuckGo{BaseURL: srv.URL + "/", PageDelay: -1}
	var got []Result
	err := d.Search(context.Background(), "gophers", 10, func(r Result) bool {
		got = append(got, r)
		return true
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (ad skipped): %+v", len(got), got)
	}
	if got[0].URL != "https://example.com/gophers" {
		t.Fatalf("redirect not unwrapped: %q", got[0].URL)
	}
	if got[0].Title != "Gophers Underground" || got[0].Snippet != "All about tunnel digging." {
		t.Fatalf("bad first result: %+v", got[0])
	}
	if got[1].URL != "https://blog.example.org/post" {
		t.Fatalf("direct link mangled: %q", got[1].URL)
	}
	for _, r := range got {
		if r.Engine != "duckduckgo" {
			t.Fatalf("Engine = %q", r.Engine)
		}
	}
}

func TestDuckDuckGoSearchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := &DuckDuckGo{BaseURL: srv.URL + "/", PageDelay: -1}
	err := d.Search(context.Background(), "q", 10, func(Result) bool { return true })
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestDuckDuckGoSearchStopsOnBotDetection(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Write([]byte(`<html><script src="https://duckduckgo.com/anomaly.js"></script></html>`))
	}))
	defer srv.Close()

	d := &DuckDuckGo{BaseURL: srv.URL + "/", PageDelay: -1}
	var got []Result
	if err := d.Search(context.Background(), "q", 10, func(r Result) bool {
		got = append(got, r)
		return true
	}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
	if pages != 1 {
		t.Fatalf("fetched %d pages after bot detection, want 1", pages)
	}
}

func TestDuckDuckGoSearchEmitStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	d := &DuckDuckGo{BaseURL: srv.URL + "/", PageDelay: -1}
	var got []Result
	err := d.Search(context.Background(), "q", 10, func(r Result) bool {
		got = append(got, r)
		return false
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("emit false should stop after 1, got %d", len(got))
	}
}

func TestUnwrapRedirect(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://example.com/page", "https://example.com/page"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Ftarget.dev%2Fa%3Fb%3D1", "https://target.dev/a?b=1"},
		{"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwrapped.example", "https://wrapped.example"},
		{"//duckduckgo.com/l/?other=x", ""},
		{"::notaurl::", ""},
	}
	for _, c := range cases {
		if got := unwrapRedirect(c.in); got != c.want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
