package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/prompts"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
)

// AskMaxURLs bounds how many URLs either scrape phase fetches (spec §4.8:
// "top 1 URL each, cap 10 URLs").
const AskMaxURLs = 10

// AskScrapeConcurrency bounds the fan-out within one scrape phase. Unlike
// the Worker Loop's strictly sequential scrape, Ask mode's two scrape
// phases are explicitly concurrent with per-URL progress events (spec §4.8
// steps 4 and 7).
const AskScrapeConcurrency = 5

// AskStageTimeout bounds each of the six Ask-mode LLM calls.
const AskStageTimeout = 60 * time.Second

// RunAsk executes the six-stage Ask verification mode (spec §4.8).
func (o *Orchestrator) RunAsk(ctx context.Context, question string) {
	start := time.Now()
	sessionID := session.NewID(question, nil)
	o.emit(sessionID, events.TypeSessionID, "", map[string]any{"session_id": sessionID})

	intent := o.askStage(ctx, sessionID, "c1_intent", func() (string, string) {
		return prompts.BuildC1Intent(question, o.Language)
	})
	knowledge := o.askStage(ctx, sessionID, "c2_knowledge", func() (string, string) {
		return prompts.BuildC2Knowledge(question, intent, o.Language)
	})
	queriesRaw := o.askStage(ctx, sessionID, "c3_queries", func() (string, string) {
		return prompts.BuildC3Queries(question, knowledge, o.Language)
	})
	queries := prompts.ParseNumberedQueries(queriesRaw)
	if len(queries) > prompts.AskQueryCount {
		queries = queries[:prompts.AskQueryCount]
	}

	sources1 := o.scrapePhase(ctx, sessionID, "phase1", queries)
	formatted1 := formatAskSources(sources1, 1)

	answer := o.askStage(ctx, sessionID, "c4_answer", func() (string, string) {
		return prompts.BuildC4Answer(question, formatted1, o.Language)
	})

	auditRaw := o.askStage(ctx, sessionID, "c5_audit", func() (string, string) {
		return prompts.BuildC5Audit(answer, o.Language)
	})
	claims := prompts.ParseC5Audit(auditRaw)
	verificationQueries := make([]string, 0, len(claims))
	for _, c := range claims {
		verificationQueries = append(verificationQueries, c.VerificationQuery)
	}

	sources2 := o.scrapePhase(ctx, sessionID, "phase2", verificationQueries)
	formatted2 := formatAskSources(sources2, 1)

	verification := o.askStage(ctx, sessionID, "c6_verification", func() (string, string) {
		return prompts.BuildC6Verification(answer, formatted2, o.Language)
	})
	validated, found := prompts.ParseValidated(verification)

	totalSources := len(sources1) + len(sources2)
	o.emit(sessionID, events.TypeDone, "", map[string]any{
		"answer":           answer,
		"verification":     verification,
		"validated":        validated,
		"validated_found":  found,
		"total_sources":    totalSources,
		"duration_seconds": time.Since(start).Seconds(),
	})
}

func (o *Orchestrator) askStage(ctx context.Context, sessionID, stage string, build func() (string, string)) string {
	o.emit(sessionID, events.TypeStageStart, stage, nil)
	system, user := build()
	resp, err := o.Gateway.Complete(ctx, o.WorkModel, []llm.Message{
		{Role: "system", Content: system}, {Role: "user", Content: user},
	}, llm.Options{Timeout: AskStageTimeout})
	content := ""
	if err == nil {
		content = resp.Content
	}
	o.emit(sessionID, events.TypeStageContent, stage, map[string]any{"stage": stage, "content": content})
	o.flushLog(sessionID)
	return content
}

type askSource struct {
	URL     string
	Title   string
	Snippet string
	Page    scrape.Page
}

// scrapePhase runs one query per top-1 search result, cap AskMaxURLs, and
// scrapes them concurrently, emitting per-URL progress (spec §4.8 steps 4, 7).
func (o *Orchestrator) scrapePhase(ctx context.Context, sessionID, phase string, queries []string) []askSource {
	o.emit(sessionID, events.TypeScrapeStart, phase, nil)

	var picks []askSource
	for i, q := range queries {
		if i > 0 {
			time.Sleep(search.InterQueryDelay)
		}
		results, err := o.Search.Search(ctx, search.SanitizeQuery(q), 1)
		if err != nil || len(results) == 0 {
			continue
		}
		picks = append(picks, askSource{URL: results[0].URL, Title: results[0].Title, Snippet: results[0].Snippet})
		if len(picks) >= AskMaxURLs {
			break
		}
	}

	sem := make(chan struct{}, AskScrapeConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := range picks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			pages := o.Scraper.Scrape(ctx, []string{picks[i].URL}, 15*time.Second)
			mu.Lock()
			if len(pages) > 0 {
				picks[i].Page = pages[0]
			}
			mu.Unlock()
			o.emit(sessionID, events.TypeScrapeProgress, phase, map[string]any{"phase": phase, "url": picks[i].URL})
		}(i)
	}
	wg.Wait()

	o.emit(sessionID, events.TypeScrapeDone, phase, map[string]any{"phase": phase, "count": len(picks)})
	return picks
}

func formatAskSources(sources []askSource, startAt int) string {
	out := ""
	n := startAt
	for _, s := range sources {
		if !s.Page.Success {
			continue
		}
		out += fmt.Sprintf("[%d] %s — %s\n%s\n\n", n, s.URL, s.Title, s.Page.Content)
		n++
	}
	return out
}
