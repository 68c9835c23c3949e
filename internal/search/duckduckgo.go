package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// DuckDuckGo implements Provider against the HTML endpoint, which needs no
// API key. Results arrive page by page and are emitted as they parse.
type DuckDuckGo struct {
	BaseURL    string // default https://html.duckduckgo.com/html/
	HTTPClient *http.Client
	UserAgent  string
	// PageDelay spaces page requests to stay under the engine's radar.
	// Zero means the 2 second default; negative disables the delay.
	PageDelay time.Duration
}

const defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search pages through HTML results, emitting each parsed hit. It stops on
// the limit, three consecutive empty pages, bot detection, or rate limiting.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int, emit func(Result) bool) error {
	if limit <= 0 {
		limit = 10
	}
	emitted := 0
	consecutiveEmpty := 0
	maxPages := limit/10 + 3

	for page := 1; page <= maxPages; page++ {
		if consecutiveEmpty >= 3 {
			break
		}
		body, err := d.fetchPage(ctx, query, page)
		if err != nil {
			if err == ErrRateLimited || ctx.Err() != nil {
				return err
			}
			log.Debug().Err(err).Int("page", page).Msg("duckduckgo page failed")
			consecutiveEmpty++
			continue
		}
		if strings.Contains(body, "anomaly.js") || strings.Contains(body, "cc=botnet") {
			log.Warn().Msg("duckduckgo bot detection triggered")
			break
		}

		hits, err := parseResults(body)
		if err != nil {
			log.Debug().Err(err).Int("page", page).Msg("duckduckgo parse failed")
			consecutiveEmpty++
			continue
		}
		if len(hits) == 0 {
			consecutiveEmpty++
		} else {
			consecutiveEmpty = 0
		}
		for _, h := range hits {
			h.Engine = d.Name()
			if !emit(h) {
				return nil
			}
			emitted++
			if emitted >= limit {
				return nil
			}
		}

		if page < maxPages {
			if err := d.pause(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *DuckDuckGo) fetchPage(ctx context.Context, query string, page int) (string, error) {
	base := d.BaseURL
	if base == "" {
		base = defaultDuckDuckGoURL
	}
	params := url.Values{"q": []string{query}}
	if page > 1 {
		params.Set("s", strconv.Itoa((page-1)*30))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	ua := d.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/122.0.0.0 Safari/537.36"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	hc := d.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("duckduckgo status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseResults extracts (title, url, snippet) triples from one results page.
func parseResults(body string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []Result
	doc.Find("div.result").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a.result__a").First()
		rawURL, ok := link.Attr("href")
		if !ok || strings.Contains(rawURL, "ad_provider") {
			return
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		target := unwrapRedirect(rawURL)
		if target == "" {
			return
		}
		snippet := strings.TrimSpace(sel.Find("a.result__snippet").First().Text())
		out = append(out, Result{Title: title, URL: target, Snippet: snippet})
	})
	return out, nil
}

// unwrapRedirect resolves the engine's redirect wrapper to the real URL,
// either a direct link or one packed into the uddg query parameter.
func unwrapRedirect(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if !strings.Contains(raw, "duckduckgo.com") {
			return raw
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return ""
}

func (d *DuckDuckGo) pause(ctx context.Context) error {
	delay := d.PageDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	if delay < 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
