// Package aggregate canonicalizes and deduplicates the search results the
// Worker Loop gathers across the several queries it issues for one research
// point (spec §4.6 steps 3-4), so a URL two queries both surfaced is only
// offered to the Pick-URLs LLM call once.
package aggregate

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/veritas/internal/search"
)

// DedupeByQuery canonicalizes each result's URL and drops cross-query exact
// duplicates, keeping a URL only in the first query (in order) that
// surfaced it. It preserves the per-query map shape search.FormatNumbered
// expects, so the caller's formatting and numbering is unaffected beyond
// the removed duplicates.
func DedupeByQuery(byQuery map[string][]search.Result, order []string) map[string][]search.Result {
	seen := make(map[string]struct{})
	out := make(map[string][]search.Result, len(byQuery))
	for _, q := range order {
		for _, r := range byQuery[q] {
			if r.URL == "" {
				continue
			}
			u, err := url.Parse(r.URL)
			if err != nil {
				continue
			}
			normalizeURL(u)
			key := u.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			r.URL = key
			out[q] = append(out[q], r)
		}
	}
	return out
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}
