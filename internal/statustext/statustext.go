// Package statustext supplies the de/en status- and log-message strings the
// mode orchestrators and the Worker Loop attach to event envelopes (spec §3:
// "language ... affects status-message strings"; spec §8 testable property
// 7: "Language parity"). It never touches LLM prompt content — that table
// lives in internal/prompts's own languageName helper — only the
// human-readable text the core itself emits on the Event Bus.
package statustext

import (
	"fmt"
	"strings"
)

func isGerman(lang string) bool {
	return strings.EqualFold(strings.TrimSpace(lang), "de")
}

// Starting is the Flat-mode "status{starting with N points}" message.
func Starting(lang string, points int) string {
	if isGerman(lang) {
		return fmt.Sprintf("Start mit %d Punkten", points)
	}
	return fmt.Sprintf("starting with %d points", points)
}

// StartingAreas is the Academic-mode "status{starting with N areas}" message.
func StartingAreas(lang string, areas int) string {
	if isGerman(lang) {
		return fmt.Sprintf("Start mit %d Bereichen", areas)
	}
	return fmt.Sprintf("starting with %d areas", areas)
}

// Resuming is emitted at the start of RunResume.
func Resuming(lang string, remaining int) string {
	if isGerman(lang) {
		return fmt.Sprintf("Fortsetzung mit %d verbleibenden Punkten", remaining)
	}
	return fmt.Sprintf("resuming with %d points remaining", remaining)
}

// FewResultsReformulating is emitted by the Worker Loop before its dead-end
// retry (spec §4.6 step 6, §8 scenario S2).
func FewResultsReformulating(lang string) string {
	if isGerman(lang) {
		return "wenige Ergebnisse - Neuformulierung"
	}
	return "few results - reformulating"
}

// RetryNewSearches is emitted once the Worker Loop's reformulation queries
// are ready to search again (spec §8 scenario S2).
func RetryNewSearches(lang string) string {
	if isGerman(lang) {
		return "erneuter Versuch mit 5 neuen Suchen"
	}
	return "retry with 5 new searches"
}

// OverviewFailed is emitted by the Setup Pipeline when the Overview LLM call
// fails or returns empty content.
func OverviewFailed(lang string) string {
	if isGerman(lang) {
		return "Erstellung der Übersicht fehlgeschlagen"
	}
	return "overview generation failed"
}

// ClarificationFailed is emitted by the Setup Pipeline when the Clarify LLM
// call fails or returns empty content.
func ClarificationFailed(lang string) string {
	if isGerman(lang) {
		return "Erstellung der Rückfragen fehlgeschlagen"
	}
	return "clarification generation failed"
}

// ConclusionUnavailable is the Academic-mode fallback conclusion text used
// when the Conclusion LLM call fails (spec §4.8: "degrade gracefully").
func ConclusionUnavailable(lang string) string {
	if isGerman(lang) {
		return "Schlussfolgerung nicht verfügbar: Synthese-Aufruf fehlgeschlagen."
	}
	return "Conclusion unavailable: synthesis call failed."
}
