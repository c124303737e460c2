package prompts

import (
	"fmt"
	"strings"
)

// OverviewQueryCount is the number of diversified search queries the
// Overview prompt asks for (spec §4.5).
const OverviewQueryCount = 10

// Overview is the parsed result of the overview prompt: a short session
// title plus OverviewQueryCount diversified queries.
type Overview struct {
	SessionTitle string
	Queries      []string
}

// BuildOverview asks the model for a session title and ten diversified
// search queries spanning primary/community/practical/critical/current
// angles on userQuery (spec §4.5).
func BuildOverview(userQuery, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research planning assistant. Respond in %s. "+
			"First line: a short, descriptive session title, no quotes. "+
			"Then a numbered list of exactly %d search queries that diversify across "+
			"primary sources, community discussion, practical how-to, critical/contrarian "+
			"takes, and current/recent developments. One query per line, numbered 1-%d.",
		lang, OverviewQueryCount, OverviewQueryCount,
	)
	user = "Research question: " + userQuery
	return system, user
}

// ParseOverview extracts the session title (first non-list line) and the
// numbered queries from raw model output.
func ParseOverview(raw string) Overview {
	ls := lines(raw)
	var title string
	var queries []string
	for _, l := range ls {
		if numberedPrefixRe.MatchString(l) {
			if q := stripListPrefix(l); q != "" {
				queries = append(queries, q)
			}
			continue
		}
		if title == "" {
			title = strings.Trim(l, "\"")
		}
	}
	if len(queries) > OverviewQueryCount {
		queries = queries[:OverviewQueryCount]
	}
	return Overview{SessionTitle: title, Queries: queries}
}
