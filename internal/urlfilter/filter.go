// Package urlfilter decides which search hits are worth fetching. It rejects
// malformed URLs, domains that are login-walled or hostile to scraping, and
// path shapes that almost never carry readable article content.
package urlfilter

import (
	"net/url"
	"regexp"
	"strings"
)

// blockedDomains require a login or actively block scrapers; fetching them
// wastes a worker slot and usually a fallback credit too.
var blockedDomains = []string{
	"reddit.com", "twitter.com", "x.com", "facebook.com",
	"youtube.com", "tiktok.com", "instagram.com",
	"linkedin.com", "medium.com",
}

// skipPatterns match URLs with low content density: binary assets,
// auth/commerce flows, tag/category/archive indexes, and storefronts.
var skipPatterns = []string{
	`\.pdf$`, `\.jpg$`, `\.jpeg$`, `\.png$`, `\.gif$`,
	`/login`, `/signin`, `/signup`, `/cart`, `/checkout`,
	`amazon\.com/.*/(dp|gp)/`, `ebay\.com/itm/`,
	`/tag/`, `/tags/`, `/category/`, `/categories/`,
	`/topic/`, `/topics/`, `/archive/`, `/page/\d+`,
	`/shop/`, `/store/`, `/buy/`, `/product/`, `/products/`,
}

// skipRe folds every pattern into one alternation so each URL is scanned once.
var skipRe = regexp.MustCompile(`(?i)(?:` + strings.Join(skipPatterns, "|") + `)`)

// Accept reports whether a URL is worth fetching. It is a pure function of
// the URL string and the fixed block lists; deduplication is the caller's
// concern.
func Accept(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	lower := strings.ToLower(raw)
	for _, d := range blockedDomains {
		if strings.Contains(lower, d) {
			return false
		}
	}
	return !skipRe.MatchString(lower)
}
