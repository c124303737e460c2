package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

type stubSearch struct {
	results map[string][]search.Result
}

func (s *stubSearch) Name() string { return "stub" }
func (s *stubSearch) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	return s.results[query], nil
}

type stubScraper struct {
	pages map[string]scrape.Page
}

func (s *stubScraper) Scrape(_ context.Context, urls []string, _ time.Duration) []scrape.Page {
	var out []scrape.Page
	for _, u := range urls {
		if p, ok := s.pages[u]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, scrape.Page{URL: u, Success: false, Error: "not found"})
	}
	return out
}

type gatewayRule struct {
	matchSystem string
	matchUser   string
	response    string
}

type stubGateway struct {
	rules []gatewayRule
	calls int
}

func (g *stubGateway) Complete(_ context.Context, _ string, messages []llm.Message, _ llm.Options) (llm.Response, error) {
	g.calls++
	var sys, user string
	for _, m := range messages {
		switch m.Role {
		case "system":
			sys = m.Content
		case "user":
			user = m.Content
		}
	}
	for _, r := range g.rules {
		if r.matchSystem != "" && !strings.Contains(sys, r.matchSystem) {
			continue
		}
		if r.matchUser != "" && !strings.Contains(user, r.matchUser) {
			continue
		}
		return llm.Response{Content: r.response}, nil
	}
	return llm.Response{}, nil
}

func newTestLoop(gw *stubGateway, sr *stubSearch, sc *stubScraper) *Loop {
	return &Loop{
		Search:    sr,
		Scraper:   sc,
		Gateway:   gw,
		Registry:  citations.New(),
		Bus:       events.NewBus(),
		WorkModel: "test-model",
		Language:  "en",
	}
}

func TestRunPointHappyPath(t *testing.T) {
	gw := &stubGateway{rules: []gatewayRule{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook at docs\n=== SEARCHES ===\nsearch 1: topic a\n"},
		{matchSystem: "select exactly", response: "https://a.example\nhttps://b.example\n"},
		{matchSystem: "structured dossier", response: "Dossier body [1] and [2].\n\n=== SOURCES ===\n[1] https://a.example — A\n[2] https://b.example — B\n\n## 💡 KEY LEARNINGS\nTopic A is well documented."},
	}}
	sr := &stubSearch{results: map[string][]search.Result{
		"topic a": {{Title: "A1", URL: "https://a.example"}, {Title: "A2", URL: "https://b.example"}},
	}}
	sc := &stubScraper{pages: map[string]scrape.Page{
		"https://a.example": {URL: "https://a.example", Success: true, Content: "content about topic a, quite long and detailed indeed."},
		"https://b.example": {URL: "https://b.example", Success: true, Content: "more content about topic a from a second source entirely."},
	}}

	l := newTestLoop(gw, sr, sc)
	res := l.RunPoint(context.Background(), "sess1", 1, "Summarize A", "")
	if res.Dossier.Skipped {
		t.Fatalf("expected point to complete, got skip reason %q", res.Dossier.SkipReason)
	}
	if res.Dossier.Body == "" {
		t.Fatalf("expected dossier body")
	}
	if len(res.Dossier.Sources) == 0 {
		t.Fatalf("expected sources")
	}
}

func TestRunPointSkipsOnThinkFailure(t *testing.T) {
	gw := &stubGateway{}
	l := newTestLoop(gw, &stubSearch{}, &stubScraper{})
	res := l.RunPoint(context.Background(), "sess1", 1, "Summarize A", "")
	if !res.Dossier.Skipped || res.Dossier.SkipReason != session.SkipThinkFailed {
		t.Fatalf("expected think_failed skip, got %+v", res.Dossier)
	}
}

func TestRunPointSkipsOnNoResults(t *testing.T) {
	gw := &stubGateway{rules: []gatewayRule{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook\n=== SEARCHES ===\nsearch 1: topic a\n"},
	}}
	sr := &stubSearch{results: map[string][]search.Result{}}
	l := newTestLoop(gw, sr, &stubScraper{})
	res := l.RunPoint(context.Background(), "sess1", 1, "Summarize A", "")
	if !res.Dossier.Skipped || res.Dossier.SkipReason != session.SkipNoResults {
		t.Fatalf("expected no_results skip, got %+v", res.Dossier)
	}
}

func TestRunPointBlocksUnsafeURLs(t *testing.T) {
	gw := &stubGateway{rules: []gatewayRule{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook\n=== SEARCHES ===\nsearch 1: topic a\n"},
		{matchSystem: "alternative", response: "1. alt query one\n2. alt query two\n"},
		{matchSystem: "select exactly", response: "http://127.0.0.1:6379/\n"},
	}}
	sr := &stubSearch{results: map[string][]search.Result{
		"topic a": {{Title: "A1", URL: "http://malicious.example"}},
	}}
	// No scrapable pages registered: the unsafe URL, whether filtered by a
	// real SSRF-validating Scraper or simply unreachable, never produces
	// content here, so the point must end in a scrape-stage skip.
	l := newTestLoop(gw, sr, &stubScraper{})
	res := l.RunPoint(context.Background(), "sess1", 1, "Summarize A", "")
	if !res.Dossier.Skipped {
		t.Fatalf("expected skip since only unsafe URL was picked and never scraped")
	}
}

// TestRunPointDeadEndRetryUsesLanguageSpecificStatus exercises spec §8
// scenario S2 (dead-end retry) and property 7 (language parity): when the
// first pick-URLs pass yields too few URLs, the reformulation retry's two
// status envelopes are drawn from the German table when Language is "de".
func TestRunPointDeadEndRetryUsesLanguageSpecificStatus(t *testing.T) {
	gw := &stubGateway{rules: []gatewayRule{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook\n=== SEARCHES ===\nsearch 1: topic a\n"},
		{matchSystem: "alternative", response: "1. alt query\n"},
		{matchSystem: "select exactly", matchUser: "Alt", response: "https://alt1.example\nhttps://alt2.example\n"},
		{matchSystem: "structured dossier", response: "Body [1][2].\n\n=== SOURCES ===\n[1] https://alt1.example — Alt1\n[2] https://alt2.example — Alt2\n\n## 💡 KEY LEARNINGS\nLearned something."},
	}}
	sr := &stubSearch{results: map[string][]search.Result{
		"topic a":   {{Title: "A1", URL: "https://a.example"}},
		"alt query": {{Title: "Alt", URL: "https://alt1.example"}, {Title: "Alt2", URL: "https://alt2.example"}},
	}}
	sc := &stubScraper{pages: map[string]scrape.Page{
		"https://alt1.example": {URL: "https://alt1.example", Success: true, Content: "long enough content about the alternate topic here."},
		"https://alt2.example": {URL: "https://alt2.example", Success: true, Content: "more long enough content about the alternate topic."},
	}}
	l := newTestLoop(gw, sr, sc)
	l.Language = "de"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessionID := "sess-de"
	sub := l.Bus.SubscribeSession(ctx, sessionID)
	var statuses []string
	pointDone := make(chan struct{})
	go func() {
		defer close(pointDone)
		for e := range sub {
			if e.Type == events.TypeStatus {
				statuses = append(statuses, e.Message)
			}
			if e.Type == events.TypePointComplete {
				return
			}
		}
	}()

	res := l.RunPoint(context.Background(), sessionID, 1, "Summarize A", "")
	if res.Dossier.Skipped {
		t.Fatalf("expected point to complete after retry, got skip reason %q", res.Dossier.SkipReason)
	}
	<-pointDone

	wantFew := statustext.FewResultsReformulating("de")
	wantRetry := statustext.RetryNewSearches("de")
	foundFew, foundRetry := false, false
	for _, m := range statuses {
		if m == wantFew {
			foundFew = true
		}
		if m == wantRetry {
			foundRetry = true
		}
		if m == statustext.FewResultsReformulating("en") || m == statustext.RetryNewSearches("en") {
			t.Fatalf("expected German status messages, saw English one: %q", m)
		}
	}
	if !foundFew || !foundRetry {
		t.Fatalf("expected both German retry status messages, got %v", statuses)
	}
}
