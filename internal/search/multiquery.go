package search

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// InterQueryDelay is the minimum spacing between search queries against a
// single provider, to avoid rate-limiting the engine (spec §4.3, §5).
const InterQueryDelay = 1500 * time.Millisecond

const maxQueryLength = 500

var quoteRe = regexp.MustCompile(`["'“”‘’]`)

// SanitizeQuery strips quotes and caps length, per spec §4.3.
func SanitizeQuery(q string) string {
	q = quoteRe.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)
	if len(q) > maxQueryLength {
		q = q[:maxQueryLength]
	}
	return q
}

// RunMulti executes each query strictly sequentially against provider, with
// an inter-query delay, returning query -> ordered results. A failing query
// yields an empty slice, never a panic or early return (spec §4.3).
func RunMulti(ctx context.Context, provider Provider, queries []string, perQueryLimit int) map[string][]Result {
	out := make(map[string][]Result, len(queries))
	for i, raw := range queries {
		q := SanitizeQuery(raw)
		if q == "" {
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				out[q] = nil
				continue
			case <-time.After(InterQueryDelay):
			}
		}
		results, err := provider.Search(ctx, q, perQueryLimit)
		if err != nil {
			out[q] = nil
			continue
		}
		out[q] = results
	}
	return out
}

// FormatNumbered renders search results from one or more queries as a single
// flat numbered list ("[n] title / URL / snippet"), with the counter
// continuing across queries in the order given (spec §4.6 step 4).
func FormatNumbered(byQuery map[string][]Result, order []string, startAt int) (string, []Result) {
	var b strings.Builder
	n := startAt
	var flat []Result
	for _, q := range order {
		for _, r := range byQuery[q] {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(n))
			b.WriteString("] ")
			b.WriteString(r.Title)
			b.WriteString(" / ")
			b.WriteString(r.URL)
			b.WriteString(" / ")
			b.WriteString(r.Snippet)
			b.WriteString("\n")
			flat = append(flat, r)
			n++
		}
	}
	return b.String(), flat
}
