package prompts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const sourcesMarker = "=== SOURCES ==="
const keyLearningsMarker = "## 💡 KEY LEARNINGS"

var sourceLineRe = regexp.MustCompile(`^\[(\d+)\]\s+(\S+)(?:\s*[—-]\s*(.*))?$`)

// Dossier is the parsed result of a Dossier prompt (spec §4.5): the
// structured body text, the key-learnings excerpt, and the point's local
// citation index -> URL mapping.
type Dossier struct {
	Text           string
	KeyLearnings   string
	LocalCitations map[int]string
}

// BuildDossier asks the model to write a structured dossier for one point
// from its scraped sources, ending with a SOURCES block and a KEY LEARNINGS
// section (spec §4.5, §4.6 step 9).
func BuildDossier(point, scrapedContent, language string) (system, user string) {
	lang := languageName(language)
	system = fmt.Sprintf(
		"You are a research analyst. Respond in %s with a structured dossier for "+
			"the given point, citing sources inline as [1], [2], etc. End with:\n"+
			"%s\n[1] <url> — <title>\n[2] <url> — <title>\n...\n%s\n<2-4 sentences "+
			"distilling the most important, citation-backed findings>",
		lang, sourcesMarker, keyLearningsMarker,
	)
	user = "Research point: " + point + "\n\nSources:\n\n" + scrapedContent
	return system, user
}

// ParseDossier splits raw dossier text into body, key learnings, and the
// local citation map built from the SOURCES block's "[N] url — title" lines.
func ParseDossier(raw string) Dossier {
	raw = capInput(raw)
	body := raw
	keyLearnings := ""
	if idx := strings.Index(raw, keyLearningsMarker); idx >= 0 {
		body = raw[:idx]
		keyLearnings = strings.TrimSpace(raw[idx+len(keyLearningsMarker):])
	}
	citations := map[int]string{}
	if idx := strings.Index(body, sourcesMarker); idx >= 0 {
		block := body[idx+len(sourcesMarker):]
		for _, l := range lines(block) {
			if m := sourceLineRe.FindStringSubmatch(l); m != nil {
				n, err := strconv.Atoi(m[1])
				if err == nil {
					citations[n] = m[2]
				}
			}
		}
	}
	return Dossier{
		Text:           strings.TrimSpace(body),
		KeyLearnings:   keyLearnings,
		LocalCitations: citations,
	}
}
