// Package prompts builds the (system, user) message pairs for every LLM call
// in the research pipeline and parses the resulting freeform, convention-based
// text back into structured data. Output is never assumed to be JSON: parsers
// are tolerant of numbered-list prefix variants and bounded against
// catastrophic backtracking, the way internal/planner and internal/verify
// already sanitize LLM output in this codebase.
package prompts

import (
	"regexp"
	"strings"
)

// MaxInputLen bounds any single text blob handed to a parser (spec §4.5).
const MaxInputLen = 500 * 1024

// MaxLineLen bounds any single line considered by a parser, to keep regexes
// linear instead of pathological on adversarial input.
const MaxLineLen = 2000

var (
	numberedPrefixRe = regexp.MustCompile(`^\s*(?:\d+[\.\):]|[-*•])\s*`)
	numericPrefixRe  = regexp.MustCompile(`^\s*\d+[\.\):]\s*`)
	urlSweepRe       = regexp.MustCompile(`https?://[^\s\]\)"'<>]+`)
)

// capInput truncates s to MaxInputLen before any parsing.
func capInput(s string) string {
	if len(s) > MaxInputLen {
		s = s[:MaxInputLen]
	}
	return s
}

// lines splits s into newline-delimited lines, each capped to MaxLineLen and
// with surrounding whitespace trimmed; blank lines are dropped.
func lines(s string) []string {
	s = capInput(s)
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if len(l) > MaxLineLen {
			l = l[:MaxLineLen]
		}
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// stripListPrefix removes a leading "N)", "N.", "N:", "-" or "*" marker,
// tolerating the prefix variants real models produce (spec §4.5).
func stripListPrefix(line string) string {
	return strings.TrimSpace(numberedPrefixRe.ReplaceAllString(line, ""))
}

// parseNumberedList extracts list items from freeform text, accepting any of
// the prefix variants stripListPrefix understands. Lines with no recognizable
// list marker are ignored, so prose surrounding the list doesn't pollute it.
func parseNumberedList(text string) []string {
	var out []string
	for _, l := range lines(text) {
		if !numberedPrefixRe.MatchString(l) {
			continue
		}
		item := stripListPrefix(l)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// sweepURLs regex-scans text for http(s):// tokens, deduping while
// preserving first-seen order and capping at max results (0 = unbounded).
func sweepURLs(text string, max int) []string {
	text = capInput(text)
	matches := urlSweepRe.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?")
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// sectionBetween returns the text strictly between a line equal to start and
// the next line equal to any of ends (or end of input if none match), used to
// pull out the "=== THINKING ===" / "=== SEARCHES ===" style blocks.
func sectionBetween(text, start string, ends ...string) string {
	text = capInput(text)
	idx := strings.Index(text, start)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(start):]
	endIdx := len(rest)
	for _, e := range ends {
		if i := strings.Index(rest, e); i >= 0 && i < endIdx {
			endIdx = i
		}
	}
	return strings.TrimSpace(rest[:endIdx])
}

// languageName maps a two-letter language code to the name used in prompts,
// defaulting to English for anything unrecognized.
func languageName(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "de":
		return "German"
	default:
		return "English"
	}
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, "\"'")
}
