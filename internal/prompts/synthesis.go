package prompts

import (
	"fmt"
	"strings"
)

// BuildAreaSynthesis combines one academic area's dossiers into a single
// area-level synthesis, preserving the (already globally renumbered)
// citations they carry (spec §4.5, §4.8).
func BuildAreaSynthesis(areaTitle string, dossiers []string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research editor. Respond in %s. Synthesize the following "+
			"dossiers for the area %q into one coherent section. Preserve every "+
			"[N] citation exactly as written; do not renumber them.",
		lang, areaTitle,
	)
	user = strings.Join(dossiers, "\n\n---\n\n")
	return system, user
}

// BuildFinalSynthesis combines all flat-mode dossiers into the final report
// (spec §4.8, Flat Deep Research).
func BuildFinalSynthesis(userQuery string, plan []string, dossiers []string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research editor. Respond in %s with a single cohesive, "+
			"well-structured report synthesizing all dossiers below. Preserve every "+
			"[N] citation exactly as written. Include a 'Sources' section listing "+
			"all cited indices.",
		lang,
	)
	var sb strings.Builder
	sb.WriteString("Research question: ")
	sb.WriteString(userQuery)
	sb.WriteString("\n\nPlan:\n")
	for i, p := range plan {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, p))
	}
	sb.WriteString("\nDossiers:\n\n")
	sb.WriteString(strings.Join(dossiers, "\n\n---\n\n"))
	return system, sb.String()
}

// BuildConclusion combines all academic area syntheses into a final
// conclusion report (spec §4.8, Academic mode, "Conclusion/Meta-synthesis").
func BuildConclusion(userQuery string, areaSyntheses []string, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research editor. Respond in %s with a conclusion that "+
			"integrates the area syntheses below into a coherent overall answer. "+
			"Preserve every [N] citation exactly as written.",
		lang,
	)
	var sb strings.Builder
	sb.WriteString("Research question: ")
	sb.WriteString(userQuery)
	sb.WriteString("\n\nArea syntheses:\n\n")
	sb.WriteString(strings.Join(areaSyntheses, "\n\n---\n\n"))
	return system, sb.String()
}

// ConcatFallback builds the "# Research Result" fallback document used when
// a Final Synthesis or Conclusion LLM call fails (spec §4.8).
func ConcatFallback(heading string, sections []string) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(heading)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(sections, "\n\n---\n\n"))
	return sb.String()
}
