// Package report post-processes a Mode Orchestrator's final document:
// appending a reproducibility footer and a source manifest, and writing a
// timestamped backup copy alongside it (spec §4.8 "write a timestamped
// backup file on success", §6 "final_synthesis_backups/",
// "academic_synthesis_backups/").
//
// Adapted from the teacher's internal/app/footer.go
// (appendReproFooter) and internal/app/manifest.go (appendEmbeddedManifest),
// generalized from synth.SourceExcerpt (one CLI run's selected sources) to
// the Citation Registry's global_index->url map (one orchestrator session's
// renumbered sources). WritePDF adapts the teacher's internal/app/pdf.go
// (writeSimplePDF) for the same final documents.
package report

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Meta carries the run details the footer/manifest record for reproducibility.
type Meta struct {
	Model       string
	LLMBaseURL  string
	SourceCount int
	GeneratedAt time.Time
}

// AppendFooter appends a minimal, deterministic reproducibility footer,
// grounded on the teacher's appendReproFooter.
func AppendFooter(markdown string, meta Meta) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n\n---\n")
	b.WriteString("Reproducibility: model=")
	b.WriteString(strings.TrimSpace(meta.Model))
	b.WriteString("; llm_base_url=")
	b.WriteString(strings.TrimSpace(meta.LLMBaseURL))
	b.WriteString("; sources_used=")
	b.WriteString(strconv.Itoa(meta.SourceCount))
	b.WriteString("\n")
	return b.String()
}

// AppendManifest appends a Markdown source manifest keyed by the Citation
// Registry's global index, each entry carrying a content digest of the URL
// string itself (the registry does not retain scraped bodies once a dossier
// is rendered, so the manifest records what is actually still available:
// the citation mapping), grounded on the teacher's appendEmbeddedManifest.
func AppendManifest(markdown string, meta Meta, urls map[int]string) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n\n## Manifest\n\n")
	b.WriteString("- Model: ")
	b.WriteString(strings.TrimSpace(meta.Model))
	b.WriteString("\n- LLM base URL: ")
	b.WriteString(strings.TrimSpace(meta.LLMBaseURL))
	b.WriteString("\n- Sources: ")
	b.WriteString(strconv.Itoa(meta.SourceCount))
	b.WriteString("\n- Generated: ")
	b.WriteString(meta.GeneratedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n\n")

	indices := make([]int, 0, len(urls))
	for idx := range urls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		url := strings.TrimSpace(urls[idx])
		b.WriteString(strconv.Itoa(idx))
		b.WriteString(". ")
		b.WriteString(url)
		b.WriteString(" — sha256=")
		b.WriteString(sha256Hex(url))
		b.WriteString("\n")
	}
	return b.String()
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// WriteBackup writes a timestamped Markdown backup of doc under dir, named
// "<sessionID>-<RFC3339-ish timestamp>.md" (spec §4.8, §6).
func WriteBackup(dir, sessionID, doc string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: backup dir: %w", err)
	}
	stamp := now.UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, sessionID+"-"+stamp+".md")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("report: write backup: %w", err)
	}
	return path, nil
}

var pdfLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// WritePDF renders a minimal PDF rendition of doc alongside its Markdown
// backup (spec's optional PDF export of the final synthesis document),
// grounded on the teacher's writeSimplePDF: headings by leading '#' count,
// inline [text](url) links turned into clickable PDF links, everything else
// as wrapped body text. It does not attempt full Markdown layout.
func WritePDF(dir, sessionID, doc string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: pdf dir: %w", err)
	}
	stamp := now.UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, sessionID+"-"+stamp+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(doc))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			pdf.Ln(5)
			continue
		}
		if strings.HasPrefix(line, "#") {
			i := 0
			for i < len(line) && line[i] == '#' {
				i++
			}
			text := strings.TrimSpace(line[i:])
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		writePDFLine(pdf, line)
		pdf.Ln(6)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("report: write pdf: %w", err)
	}
	return path, nil
}

func writePDFLine(pdf *gofpdf.Fpdf, line string) {
	matches := pdfLinkRe.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		pdf.MultiCell(0, 5, line, "", "L", false)
		return
	}
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			pdf.Write(5, line[pos:m[0]])
		}
		text := line[m[2]:m[3]]
		url := line[m[4]:m[5]]
		if strings.HasPrefix(url, "#") {
			pdf.Write(5, text)
		} else {
			pdf.WriteLinkString(5, text, url)
		}
		pos = m[1]
	}
	if pos < len(line) {
		pdf.Write(5, line[pos:])
	}
}
