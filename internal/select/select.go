// Package selecter applies diversity-aware, per-domain-capped selection to
// the URLs the Pick-URLs LLM call returns for one research point (spec
// §4.6 step 6), so a single dominant domain can't crowd out every other
// scrape slot before the dossier stage sees any diversity of sources.
package selecter

import (
	"net/url"
	"strings"
)

// Options configures selection constraints.
type Options struct {
	MaxTotal  int
	PerDomain int
}

// Select canonicalizes URLs, drops exact duplicates, and applies a
// per-domain cap, preserving the caller's original ordering (the LLM's
// pick ranking) among survivors.
func Select(urls []string, opt Options) []string {
	if opt.MaxTotal <= 0 {
		opt.MaxTotal = len(urls)
	}
	if opt.PerDomain <= 0 {
		opt.PerDomain = 3
	}
	domainCounts := map[string]int{}
	seenURL := map[string]struct{}{}
	out := make([]string, 0, opt.MaxTotal)
	for _, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			continue
		}
		canon := canonicalizeURL(u)
		if _, ok := seenURL[canon]; ok {
			continue
		}
		host := strings.ToLower(u.Host)
		if domainCounts[host] >= opt.PerDomain {
			continue
		}
		seenURL[canon] = struct{}{}
		domainCounts[host]++
		out = append(out, canon)
		if len(out) >= opt.MaxTotal {
			break
		}
	}
	return out
}

func canonicalizeURL(u *url.URL) string {
	u2 := *u
	u2.Fragment = ""
	u2.Host = strings.ToLower(u2.Host)
	if (u2.Scheme == "http" && strings.HasSuffix(u2.Host, ":80")) || (u2.Scheme == "https" && strings.HasSuffix(u2.Host, ":443")) {
		u2.Host = u2.Hostname()
	}
	return u2.String()
}
