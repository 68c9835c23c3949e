package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultReaderURL is the public Jina Reader endpoint. The target URL is
// appended to the base path.
const DefaultReaderURL = "https://r.jina.ai/"

// readerErrorMarkers appear in reader responses that report a failure as a
// 200 body instead of a status code.
var readerErrorMarkers = []string{
	"Target URL returned error",
	"You've been blocked",
	"SecurityCompromiseError",
}

// IsReaderError reports whether a reader payload is a known error response
// rather than page content.
func IsReaderError(text string) bool {
	for _, m := range readerErrorMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Reader fetches a page's content through the intermediary reader service,
// which returns plain or markdown text for pages that block direct retrieval.
type Reader struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds each reader request; a reader timeout is terminal for
	// the URL, there is no third tier.
	Timeout time.Duration
}

// Fetch retrieves plain text for the target URL via the reader service.
func (r *Reader) Fetch(ctx context.Context, target string) (string, error) {
	base := r.BaseURL
	if base == "" {
		base = DefaultReaderURL
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+target, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Return-Format", "text")

	hc := r.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}
