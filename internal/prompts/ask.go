package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// AskQueryCount is the number of search queries C3 produces (spec §4.8).
const AskQueryCount = 10

// AskClaimCount is the exact number of claims C5 must produce, each paired
// with a verification query (spec §4.8).
const AskClaimCount = 10

// BuildC1Intent restates what the user wants, in the user's own terms (spec
// §4.8, Ask mode stage 1).
func BuildC1Intent(question, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf("You are a careful listener. Respond in %s by restating, in your own words, what the user wants to know. Do not answer the question yet.", lang)
	user = "Question: " + question
	return system, user
}

// BuildC2Knowledge enumerates the information needed to answer the question
// (spec §4.8, stage 2).
func BuildC2Knowledge(question, intent, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf("You are a research planner. Respond in %s with a numbered list enumerating the distinct pieces of information needed to answer the question.", lang)
	user = "Question: " + question + "\n\nRestated intent: " + intent
	return system, user
}

// BuildC3Queries produces the ten search queries for scrape phase 1 (spec
// §4.8, stage 3).
func BuildC3Queries(question, knowledge, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf("You are a search strategist. Respond in %s with exactly %d numbered search queries that together would surface the needed information.", lang, AskQueryCount)
	user = "Question: " + question + "\n\nInformation needed:\n" + knowledge
	return system, user
}

// BuildC4Answer synthesizes an answer citing [1]..[n] from the phase-1
// scraped sources (spec §4.8, stage 5).
func BuildC4Answer(question, formattedSources, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf("You are a careful analyst. Respond in %s with a direct answer to the question, citing sources inline as [1], [2], etc. Only state what the sources support.", lang)
	user = "Question: " + question + "\n\nSources:\n\n" + formattedSources
	return system, user
}

// BuildC5Audit asks for exactly AskClaimCount claims from the answer, each
// with a verification query (a line containing "->") (spec §4.8, stage 6).
func BuildC5Audit(answer, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a fact-check auditor. Respond in %s with exactly %d numbered "+
			"claims extracted from the answer below. For each, on the same line, "+
			"write the claim, then '->', then a search query that would verify it.",
		lang, AskClaimCount,
	)
	user = "Answer:\n\n" + answer
	return system, user
}

// BuildC6Verification cross-checks claims against phase-2 verification
// sources using [V1]..[Vn] citations, ending with an explicit, always-English
// "Validated: Yes|No" line (spec §4.8, stage 8).
func BuildC6Verification(answer, formattedVerificationSources, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a fact-check verifier. Respond in %s. Cross-check each claim in "+
			"the answer against the verification sources below, citing them as "+
			"[V1], [V2], etc. End your response with a line in English, exactly: "+
			"'Validated: Yes' or 'Validated: No'.",
		lang,
	)
	user = "Answer:\n\n" + answer + "\n\nVerification sources:\n\n" + formattedVerificationSources
	return system, user
}

// Claim is one audited claim paired with its verification query (spec §4.8
// stage 6 output).
type Claim struct {
	Text             string
	VerificationQuery string
}

// ParseC5Audit extracts up to AskClaimCount claims, splitting each numbered
// line on "->" into claim text and verification query.
func ParseC5Audit(raw string) []Claim {
	var out []Claim
	for _, l := range lines(raw) {
		if !numberedPrefixRe.MatchString(l) {
			continue
		}
		item := stripListPrefix(l)
		idx := strings.Index(item, "->")
		if idx < 0 {
			continue
		}
		claim := strings.TrimSpace(item[:idx])
		query := strings.TrimSpace(item[idx+len("->"):])
		if claim == "" || query == "" {
			continue
		}
		out = append(out, Claim{Text: claim, VerificationQuery: query})
		if len(out) >= AskClaimCount {
			break
		}
	}
	return out
}

var validatedLineRe = regexp.MustCompile(`(?i)validated\s*:\s*(yes|no)`)

// ParseValidated extracts the always-English "Validated: Yes|No" terminal
// line from a C6 verification response (spec §4.8 stage 8).
func ParseValidated(raw string) (validated bool, found bool) {
	m := validatedLineRe.FindStringSubmatch(raw)
	if m == nil {
		return false, false
	}
	return strings.EqualFold(m[1], "yes"), true
}
