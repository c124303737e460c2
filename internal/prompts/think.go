package prompts

import (
	"fmt"
	"regexp"
)

var searchLineRe = regexp.MustCompile(`(?i)^search\s*\d+\s*:\s*(.+)$`)

// MaxThinkSearches bounds how many search queries a Think response may
// propose (spec §4.5: "up to 10").
const MaxThinkSearches = 10

const thinkingMarker = "=== THINKING ==="
const searchesMarker = "=== SEARCHES ==="

// Think is the parsed result of a Think prompt: free reasoning text plus the
// search queries it proposes.
type Think struct {
	ThinkingBlock string
	SearchQueries []string
}

// BuildThink asks the model to reason about one research point and propose
// search queries, optionally informed by learnings accumulated so far (spec
// §4.6 step 1).
func BuildThink(point, accumulatedLearnings, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research assistant. Respond in %s using exactly this "+
			"structure:\n%s\n<your reasoning>\n%s\nsearch 1: <query>\nsearch 2: <query>\n"+
			"... up to %d searches.",
		lang, thinkingMarker, searchesMarker, MaxThinkSearches,
	)
	user = "Research point: " + point
	if accumulatedLearnings != "" {
		user += "\n\nLearnings so far:\n" + accumulatedLearnings
	}
	return system, user
}

// ParseThink extracts the thinking block and numbered "search N: ..."
// queries from a Think response.
func ParseThink(raw string) Think {
	thinking := sectionBetween(raw, thinkingMarker, searchesMarker)
	searchesBlock := sectionBetween(raw, searchesMarker)
	var queries []string
	for _, l := range lines(searchesBlock) {
		if q := extractSearchQuery(l); q != "" {
			queries = append(queries, q)
			if len(queries) >= MaxThinkSearches {
				break
			}
		}
	}
	return Think{ThinkingBlock: thinking, SearchQueries: queries}
}

func extractSearchQuery(line string) string {
	if m := searchLineRe.FindStringSubmatch(line); m != nil {
		return trimQuotes(m[1])
	}
	// Fall back to treating a bare numbered/bulleted line as a query.
	if numberedPrefixRe.MatchString(line) {
		return stripListPrefix(line)
	}
	return ""
}
