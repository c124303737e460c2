package prompts

import "fmt"

// PickCountOverview/PickCountPerPoint are the exact counts the Pick-URLs
// prompt asks for at the two call sites that use it (spec §4.5).
const (
	PickCountOverview = 10
	PickCountPerPoint = 20
)

// BuildPickURLs asks the model to select exactly count URLs from a formatted
// numbered result list (spec §4.5).
func BuildPickURLs(formattedResults string, count int, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research assistant. Respond in %s. From the numbered search "+
			"results below, select exactly %d URLs most relevant to the research "+
			"goal. Respond with one URL per line, nothing else.",
		lang, count,
	)
	user = formattedResults
	return system, user
}

// BuildReformulation asks for 5 alternative queries with different keywords
// or perspective when the first pick-URLs pass yields too few URLs (spec
// §4.6 step 6, "dead-end retry").
func BuildReformulation(point string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research assistant. Respond in %s with exactly 5 alternative "+
			"search queries that use different keywords or a different "+
			"perspective than before. One query per line, numbered 1-5.",
		lang,
	)
	user = "Research point: " + point
	return system, user
}

// ParsePickURLs regex-sweeps raw for http(s):// tokens, dedupes them, and
// caps the result at max entries (spec §4.5: "URL extraction ... is regex
// sweep of http(s)://... tokens").
func ParsePickURLs(raw string, max int) []string {
	return sweepURLs(raw, max)
}

// ParseNumberedQueries extracts a flat numbered/bulleted list of queries,
// used for the reformulation response (spec §4.6 step 6: "5 alternative
// queries").
func ParseNumberedQueries(raw string) []string {
	return parseNumberedList(raw)
}
