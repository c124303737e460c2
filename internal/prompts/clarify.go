package prompts

import (
	"fmt"
	"regexp"
)

// MaxClarifyingQuestions bounds how many focusing questions the Clarify
// prompt may ask (spec §4.5).
const MaxClarifyingQuestions = 5

// BuildClarify asks the model to read the scraped overview content and
// either propose up to MaxClarifyingQuestions focusing questions, or state
// that none are needed. The whole response is passed through to the UI
// verbatim (spec §4.5); ExtractClarifyingQuestions pulls a best-effort list
// back out of it for callers that need structure.
func BuildClarify(overviewContent string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a helpful research assistant. Respond in %s with a brief, "+
			"positive-tone preamble, then either: up to %d numbered clarifying "+
			"questions that would sharpen the research, or a short statement that "+
			"no clarification is needed.",
		lang, MaxClarifyingQuestions,
	)
	user = "Scraped overview content:\n\n" + overviewContent
	return system, user
}

var questionLineRe = regexp.MustCompile(`\?\s*$`)

// ExtractClarifyingQuestions heuristically pulls numbered or bulleted
// question lines out of a Clarify response. The setup pipeline never
// formally did this upstream (Open Question in the spec); this is the
// best-effort reconstruction used when a caller needs a discrete list rather
// than the raw passthrough string.
func ExtractClarifyingQuestions(raw string) []string {
	var out []string
	for _, item := range parseNumberedList(raw) {
		out = append(out, item)
		if len(out) >= MaxClarifyingQuestions {
			break
		}
	}
	if len(out) > 0 {
		return out
	}
	// Fall back to scanning plain lines that look like questions.
	for _, l := range lines(raw) {
		if questionLineRe.MatchString(l) {
			out = append(out, l)
			if len(out) >= MaxClarifyingQuestions {
				break
			}
		}
	}
	return out
}
