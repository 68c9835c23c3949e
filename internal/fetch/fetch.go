// Package fetch retrieves one page's content under the two-tier strategy:
// a direct HTTP attempt first, then the fallback reader service gated by the
// shared rate limiter. Every failure mode is captured on the Outcome value;
// nothing escapes a worker as an error.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/webresearch/internal/extract"
	"github.com/hyperifyio/webresearch/internal/ratelimit"
)

// Source tags which tier produced a successful outcome.
type Source string

const (
	SourceDirect   Source = "direct"
	SourceFallback Source = "fallback"
)

// Failure reasons reported on outcomes.
const (
	ErrTooLarge         = "too large"
	ErrBlockedContent   = "blocked content"
	ErrAllMethodsFailed = "all fetch methods failed"
)

// Outcome is the terminal, immutable record of one URL's fetch attempt.
// Err is set iff Success is false.
type Outcome struct {
	URL     string
	Success bool
	Content string
	Title   string
	Err     string
	Source  Source
}

// TruncationMarker is appended when successful content exceeds the maximum.
const TruncationMarker = "\n\n[Truncated...]"

// MaxBodyBytes is the hard cap on response bodies; anything declared or
// streamed past it is rejected before extraction to bound memory.
const MaxBodyBytes = 2 << 20

// blockedMarkers identify CAPTCHA and bot-challenge interstitials. Only the
// head of the body is inspected.
var blockedMarkers = []string{
	"verify you are human",
	"are you a robot",
	"captcha",
	"enable javascript and cookies to continue",
	"attention required! | cloudflare",
	"access denied",
}

const blockedSniffLen = 4096

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/605.1.15",
}

// RandomUserAgent picks a browser user agent for one request.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// Client fetches a single URL and classifies the result. One Client is shared
// by all workers; it holds no per-request state.
type Client struct {
	HTTPClient *http.Client
	// Timeout bounds each direct or fallback request.
	Timeout time.Duration
	// MinContentLength is the shortest extracted text accepted as success.
	MinContentLength int
	// MaxContentLength truncates successful content; 0 disables truncation.
	MaxContentLength int
	// FallbackOnBlocked routes blocked-content pages to the reader instead
	// of failing terminally.
	FallbackOnBlocked bool
	// Reader is the fallback tier; nil disables it.
	Reader *Reader
	// Limiter paces reader calls across all workers.
	Limiter *ratelimit.Limiter
	// ExtractOptions tunes the content extractor.
	ExtractOptions extract.Options
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
}

// Fetch runs the two-tier strategy for one URL. It never returns an error;
// all failures are data on the Outcome.
func (c *Client) Fetch(ctx context.Context, url string) Outcome {
	out, tryFallback := c.direct(ctx, url)
	if !tryFallback {
		return out
	}
	return c.fallback(ctx, url)
}

// direct attempts origin retrieval and classifies the response. The second
// return value reports whether the fallback tier should be tried.
func (c *Client) direct(ctx context.Context, url string) (Outcome, bool) {
	body, status, err := c.get(ctx, url)
	if err != nil {
		// Transport failures and timeouts are presumed recoverable via the
		// reader service.
		log.Debug().Err(err).Str("url", url).Msg("direct fetch failed")
		return Outcome{}, true
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusTooManyRequests:
		log.Debug().Int("status", status).Str("url", url).Msg("blocked status, trying fallback")
		return Outcome{}, true
	case status == errStatusTooLarge:
		return Outcome{URL: url, Err: ErrTooLarge}, false
	case status < 200 || status > 299:
		return Outcome{URL: url, Err: fmt.Sprintf("HTTP %d", status)}, false
	}

	if containsBlockedMarker(body) {
		if c.FallbackOnBlocked {
			log.Debug().Str("url", url).Msg("blocked content, trying fallback")
			return Outcome{}, true
		}
		return Outcome{URL: url, Err: ErrBlockedContent}, false
	}

	doc := extract.WithOptions(body, c.ExtractOptions)
	if len(doc.Text) < c.MinContentLength {
		return Outcome{}, true
	}
	content, title := c.finish(doc.Text)
	if doc.Title != "" {
		title = doc.Title
	}
	return Outcome{URL: url, Success: true, Content: content, Title: title, Source: SourceDirect}, false
}

// errStatusTooLarge is an internal pseudo-status used by get to signal that
// the declared or streamed body exceeded MaxBodyBytes.
const errStatusTooLarge = -1

func (c *Client) get(ctx context.Context, url string) (string, int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, nil
	}
	if resp.ContentLength > MaxBodyBytes {
		// Declared oversize: skip the body entirely.
		return "", errStatusTooLarge, nil
	}

	// Decode to UTF-8 honoring the response charset, reading at most one
	// byte past the cap to detect undeclared oversize bodies.
	reader, err := charset.NewReader(io.LimitReader(resp.Body, MaxBodyBytes+1), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", 0, fmt.Errorf("charset: %w", err)
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return "", 0, fmt.Errorf("read body: %w", err)
	}
	if len(b) > MaxBodyBytes {
		return "", errStatusTooLarge, nil
	}
	return string(b), resp.StatusCode, nil
}

func (c *Client) httpClient() *http.Client {
	maxHops := c.RedirectMaxHops
	if maxHops <= 0 {
		maxHops = 5
	}
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return errors.New("too many redirects")
		}
		return nil
	}
	if c.HTTPClient != nil {
		// Clone to attach the redirect policy without mutating the caller's
		// client.
		base := *c.HTTPClient
		base.CheckRedirect = checkRedirect
		return &base
	}
	return &http.Client{CheckRedirect: checkRedirect}
}

func (c *Client) fallback(ctx context.Context, url string) Outcome {
	if c.Reader == nil || c.Limiter == nil {
		return Outcome{URL: url, Err: ErrAllMethodsFailed}
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return Outcome{URL: url, Err: err.Error()}
	}
	text, err := c.Reader.Fetch(ctx, url)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("reader fetch failed")
		return Outcome{URL: url, Err: ErrAllMethodsFailed}
	}
	if IsReaderError(text) || len(text) < c.MinContentLength {
		return Outcome{URL: url, Err: ErrAllMethodsFailed}
	}
	content, title := c.finish(text)
	return Outcome{URL: url, Success: true, Content: content, Title: title, Source: SourceFallback}
}

// finish truncates content to the configured maximum and derives a title from
// a leading markdown heading when present.
func (c *Client) finish(text string) (content, title string) {
	content = text
	if c.MaxContentLength > 0 && len(content) > c.MaxContentLength {
		content = truncateValid(content, c.MaxContentLength) + TruncationMarker
	}
	return content, TitleFromContent(content)
}

// TitleFromContent reads the first markdown heading line of extracted text.
func TitleFromContent(content string) string {
	if !strings.HasPrefix(content, "# ") {
		return ""
	}
	if i := strings.IndexByte(content, '\n'); i > 2 {
		return strings.TrimSpace(content[2:i])
	}
	return strings.TrimSpace(content[2:])
}

// truncateValid cuts at the byte limit without splitting a UTF-8 sequence.
func truncateValid(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func containsBlockedMarker(body string) bool {
	head := body
	if len(head) > blockedSniffLen {
		head = head[:blockedSniffLen]
	}
	head = strings.ToLower(head)
	for _, m := range blockedMarkers {
		if strings.Contains(head, m) {
			return true
		}
	}
	return false
}
