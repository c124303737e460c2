// Package worker implements the per-point Worker Loop (spec §4.6): the
// think -> search -> pick -> scrape -> dossier state machine that every mode
// orchestrator runs once per research point.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/veritas/internal/aggregate"
	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/prompts"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	selecter "github.com/hyperifyio/veritas/internal/select"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

// Timeouts for each LLM call stage (spec §5).
const (
	ThinkTimeout    = 60 * time.Second
	PickTimeout     = 60 * time.Second
	DossierTimeout  = 120 * time.Second
	DossierMaxTokens = 8000
)

// SearchResultsPerQuery caps results returned per search query (spec §4.3).
const SearchResultsPerQuery = 20

// ScrapeTimeoutDossier is the per-URL scrape timeout used at the dossier
// stage, raised from the default 15s (spec §4.3).
const ScrapeTimeoutDossier = 45 * time.Second

// PickDiversityPerDomainCap bounds how many of the picked URLs may share a
// single domain before scraping (spec §4.6 step 6-7: diversity over raw
// LLM ranking).
const PickDiversityPerDomainCap = 3

// Loop runs the per-point Worker Loop against shared infrastructure.
type Loop struct {
	Search    search.Provider
	Scraper   scrape.Scraper
	Gateway   llm.Gateway
	Registry  *citations.Registry
	Bus       *events.Bus
	WorkModel string
	Language  string

	// LogRing, when set, is drained into a "log" envelope once per point,
	// right after the dossier LLM call (spec §7: "flushed ... after each
	// LLM call"). Nil disables it.
	LogRing *events.LogRing
}

// Result is everything the orchestrator needs to know after running one
// point through the loop (spec §4.6 step 11-13).
type Result struct {
	Dossier      session.Dossier
	KeyLearnings string
}

// RunPoint executes the full 14-step loop for one point (spec §4.6).
// accumulatedLearnings is read-only input to Think/Pick calls; the caller
// decides how the returned KeyLearnings folds back into it.
func (l *Loop) RunPoint(ctx context.Context, sessionID string, pointIndex int, point, accumulatedLearnings string) Result {
	emit := func(t events.Type, msg string, data any) {
		l.Bus.Emit(sessionID, events.Envelope{Type: t, Message: msg, Data: data})
	}

	// Step 1: Think.
	sys, usr := prompts.BuildThink(point, accumulatedLearnings, l.Language)
	thinkResp, err := l.Gateway.Complete(ctx, l.WorkModel, []llm.Message{
		{Role: "system", Content: sys}, {Role: "user", Content: usr},
	}, llm.Options{Timeout: ThinkTimeout})
	if err != nil || strings.TrimSpace(thinkResp.Content) == "" {
		return l.skip(point, session.SkipThinkFailed)
	}

	// Step 2: parse thinking_block, queries.
	think := prompts.ParseThink(thinkResp.Content)
	if len(think.SearchQueries) == 0 {
		return l.skip(point, session.SkipNoQueries)
	}

	// Step 3: search.
	byQuery := search.RunMulti(ctx, l.Search, think.SearchQueries, SearchResultsPerQuery)
	if allEmpty(byQuery) {
		return l.skip(point, session.SkipNoResults)
	}
	byQuery = aggregate.DedupeByQuery(byQuery, think.SearchQueries)

	// Step 4: format flat numbered result list.
	formatted, flat := search.FormatNumbered(byQuery, think.SearchQueries, 1)

	// Step 5: pick URLs.
	picked := l.pickURLs(ctx, formatted, prompts.PickCountPerPoint)

	// Step 6: retry on dead-end.
	if len(picked) < 2 {
		emit(events.TypeStatus, statustext.FewResultsReformulating(l.Language), nil)
		sys2, usr2 := prompts.BuildReformulation(point, l.Language)
		reformResp, err := l.Gateway.Complete(ctx, l.WorkModel, []llm.Message{
			{Role: "system", Content: sys2}, {Role: "user", Content: usr2},
		}, llm.Options{Timeout: ThinkTimeout})
		if err == nil && strings.TrimSpace(reformResp.Content) != "" {
			altQueries := prompts.ParseNumberedQueries(reformResp.Content)
			if len(altQueries) > 0 {
				emit(events.TypeStatus, statustext.RetryNewSearches(l.Language), nil)
				byQuery2 := search.RunMulti(ctx, l.Search, altQueries, SearchResultsPerQuery)
				byQuery2 = aggregate.DedupeByQuery(byQuery2, altQueries)
				nextStart := len(flat) + 1
				formatted2, flat2 := search.FormatNumbered(byQuery2, altQueries, nextStart)
				formatted += "\n" + formatted2
				flat = append(flat, flat2...)
				picked = l.pickURLs(ctx, formatted, prompts.PickCountPerPoint)
			}
		}
		if len(picked) < 1 {
			return l.skip(point, session.SkipNoURLsAfterRetry)
		}
	}

	// Step 7: emit sources.
	picked = selecter.Select(picked, selecter.Options{PerDomain: PickDiversityPerDomainCap})
	emit(events.TypeSources, "", map[string]any{"urls": picked})

	// Step 8: scrape.
	pages := l.Scraper.Scrape(ctx, picked, ScrapeTimeoutDossier)
	scraped := formatScraped(pages)
	if scraped == "" {
		return l.skip(point, session.SkipScrapeEmpty)
	}

	// Step 9: dossier.
	sys3, usr3 := prompts.BuildDossier(point, scraped, l.Language)
	dossierResp, err := l.Gateway.Complete(ctx, l.WorkModel, []llm.Message{
		{Role: "system", Content: sys3}, {Role: "user", Content: usr3},
	}, llm.Options{Timeout: DossierTimeout, MaxTokens: DossierMaxTokens})
	if err != nil || strings.TrimSpace(dossierResp.Content) == "" {
		return l.skip(point, session.SkipDossierFailed)
	}
	parsed := prompts.ParseDossier(dossierResp.Content)

	// Step 10: renumber citations via Citation Registry.
	renumberedText, mapping := l.Registry.Renumber(parsed.Text, parsed.LocalCitations)
	renumberedLearnings := citations.ApplyMapping(parsed.KeyLearnings, mapping)

	dossierURLs := successURLs(pages)
	dossier := session.Dossier{
		Point:          point,
		Sources:        dossierURLs,
		Body:           renumberedText,
		KeyLearnings:   renumberedLearnings,
		LocalCitations: parsed.LocalCitations,
	}

	emit(events.TypePointComplete, "", map[string]any{
		"point_number":  pointIndex,
		"dossier":       dossier.Body,
		"key_learnings": dossier.KeyLearnings,
		"sources":       dossier.Sources,
		"skipped":       false,
	})
	if lines := l.LogRing.Drain(); lines != nil {
		emit(events.TypeLog, "", map[string]any{"lines": lines})
	}

	return Result{Dossier: dossier, KeyLearnings: dossier.KeyLearnings}
}

func (l *Loop) pickURLs(ctx context.Context, formatted string, count int) []string {
	sys, usr := prompts.BuildPickURLs(formatted, count, l.Language)
	resp, err := l.Gateway.Complete(ctx, l.WorkModel, []llm.Message{
		{Role: "system", Content: sys}, {Role: "user", Content: usr},
	}, llm.Options{Timeout: PickTimeout})
	if err != nil {
		return nil
	}
	return prompts.ParsePickURLs(resp.Content, count)
}

func (l *Loop) skip(point string, reason session.SkipReason) Result {
	return Result{Dossier: session.Dossier{
		Point:      point,
		Skipped:    true,
		SkipReason: reason,
	}, KeyLearnings: fmt.Sprintf("skipped - %s", reason)}
}

func allEmpty(byQuery map[string][]search.Result) bool {
	for _, rs := range byQuery {
		if len(rs) > 0 {
			return false
		}
	}
	return true
}

func successURLs(pages []scrape.Page) []string {
	var out []string
	for _, p := range pages {
		if p.Success {
			out = append(out, p.URL)
		}
	}
	return out
}

func formatScraped(pages []scrape.Page) string {
	var sb strings.Builder
	for _, p := range pages {
		if !p.Success {
			continue
		}
		content := p.Content
		if len(content) > 10000 {
			content = content[:10000]
		}
		sb.WriteString("=== QUELLE: ")
		sb.WriteString(p.URL)
		sb.WriteString(" ===\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}
