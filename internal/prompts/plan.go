package prompts

import (
	"fmt"
	"strings"
)

// MinFlatPoints is the minimum number of points a flat plan must contain
// (spec §4.5: "at least 5 numbered research points").
const MinFlatPoints = 5

// MinAreas/MaxAreas and per-area point bounds for academic mode (spec §4.5).
const (
	MinAreas          = 3
	MaxAreas          = 5
	MinPointsPerArea  = 2
	MaxPointsPerArea  = 4
)

// BuildPlanFlat asks for a flat, numbered research plan with the mandated
// per-point sub-structure (Goal, Queries, Filters, Output, Validation).
func BuildPlanFlat(userQuery string, clarificationQAs []string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research planning assistant. Respond in %s with at least %d "+
			"numbered research points. For each point, include: Goal, Queries, "+
			"Filters, Output, and Validation as sub-lines. Number points 1, 2, 3, ...",
		lang, MinFlatPoints,
	)
	user = buildPlanUser(userQuery, clarificationQAs)
	return system, user
}

// BuildPlanAcademic asks for 3-5 autonomous research areas, each with 2-4
// points, at least one of which is explicitly critical/counter-evidence
// focused (spec §4.5).
func BuildPlanAcademic(userQuery string, clarificationQAs []string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are an academic research planning assistant. Respond in %s with "+
			"%d-%d independently researchable areas. Prefix each area heading with "+
			"'AREA:'. Under each area, list %d-%d numbered points. At least one "+
			"area must be critical or focused on counter-evidence/limitations.",
		lang, MinAreas, MaxAreas, MinPointsPerArea, MaxPointsPerArea,
	)
	user = buildPlanUser(userQuery, clarificationQAs)
	return system, user
}

func buildPlanUser(userQuery string, clarificationQAs []string) string {
	var sb strings.Builder
	sb.WriteString("Research question: ")
	sb.WriteString(userQuery)
	if len(clarificationQAs) > 0 {
		sb.WriteString("\n\nClarification:\n")
		for _, qa := range clarificationQAs {
			sb.WriteString("- ")
			sb.WriteString(qa)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// ParsePlanFlat extracts the ordered point strings from a flat plan
// response, tolerating "N)", "N.", "N:" numeric headers with "-"/"*"
// bulleted sub-lines (spec §4.5). Each point's sub-structure
// (Goal/Queries/...) is kept as part of the point text, since the plan data
// model stores points as opaque strings (spec §3).
func ParsePlanFlat(raw string) []string {
	var points []string
	var current strings.Builder
	flush := func() {
		p := strings.TrimSpace(current.String())
		if p != "" {
			points = append(points, p)
		}
		current.Reset()
	}
	for _, l := range lines(raw) {
		if numericPrefixRe.MatchString(l) {
			flush()
			current.WriteString(strings.TrimSpace(numericPrefixRe.ReplaceAllString(l, "")))
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
			current.WriteString(l)
		}
	}
	flush()
	return points
}

// ParsePlanAcademic extracts area->points from an academic plan response.
// Areas are introduced by a line containing "AREA:" (case-insensitive);
// points under an area use the same numbered/bulleted prefixes as flat plans.
func ParsePlanAcademic(raw string) []struct {
	Title  string
	Points []string
} {
	type area = struct {
		Title  string
		Points []string
	}
	var areas []area
	var cur *area
	for _, l := range lines(raw) {
		if idx := strings.Index(strings.ToUpper(l), "AREA:"); idx >= 0 {
			title := strings.TrimSpace(l[idx+len("AREA:"):])
			areas = append(areas, area{Title: title})
			cur = &areas[len(areas)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if numericPrefixRe.MatchString(l) {
			p := strings.TrimSpace(numericPrefixRe.ReplaceAllString(l, ""))
			if p != "" {
				cur.Points = append(cur.Points, p)
			}
		}
	}
	return areas
}
