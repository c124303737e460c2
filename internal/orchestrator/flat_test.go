package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

type fakeSearch struct{ results map[string][]search.Result }

func (f *fakeSearch) Name() string { return "fake" }
func (f *fakeSearch) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	return f.results[query], nil
}

type fakeScraper struct{ pages map[string]scrape.Page }

func (f *fakeScraper) Scrape(_ context.Context, urls []string, _ time.Duration) []scrape.Page {
	var out []scrape.Page
	for _, u := range urls {
		if p, ok := f.pages[u]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, scrape.Page{URL: u, Success: false})
	}
	return out
}

type fakeGateway struct {
	rules []struct {
		matchSystem string
		response    string
	}
}

func (g *fakeGateway) Complete(_ context.Context, _ string, messages []llm.Message, _ llm.Options) (llm.Response, error) {
	sys := ""
	for _, m := range messages {
		if m.Role == "system" {
			sys = m.Content
		}
	}
	for _, r := range g.rules {
		if strings.Contains(sys, r.matchSystem) {
			return llm.Response{Content: r.response}, nil
		}
	}
	return llm.Response{}, nil
}

func newTestOrchestrator(gw *fakeGateway, sr *fakeSearch, sc *fakeScraper, dir string) *Orchestrator {
	return &Orchestrator{
		Bus:         events.NewBus(),
		Checkpoints: nil,
		Search:      sr,
		Scraper:     sc,
		Gateway:     gw,
		WorkModel:   "work-model",
		FinalModel:  "final-model",
		Language:    "en",
		sleepFn:     func(time.Duration) {},
	}
}

func TestRunFlatHappyPathEventOrder(t *testing.T) {
	gw := &fakeGateway{rules: []struct {
		matchSystem string
		response    string
	}{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook\n=== SEARCHES ===\nsearch 1: topic\n"},
		{matchSystem: "select exactly", response: "https://a.example\nhttps://b.example\n"},
		{matchSystem: "structured dossier", response: "Body [1][2].\n\n=== SOURCES ===\n[1] https://a.example — A\n[2] https://b.example — B\n\n## 💡 KEY LEARNINGS\nLearned something."},
		{matchSystem: "research editor", response: "# Final Report\n\nSynthesized content."},
	}}
	sr := &fakeSearch{results: map[string][]search.Result{
		"topic": {{Title: "A", URL: "https://a.example"}, {Title: "B", URL: "https://b.example"}},
	}}
	sc := &fakeScraper{pages: map[string]scrape.Page{
		"https://a.example": {URL: "https://a.example", Success: true, Content: "long enough content about the topic here."},
		"https://b.example": {URL: "https://b.example", Success: true, Content: "more long enough content about the topic."},
	}}
	o := newTestOrchestrator(gw, sr, sc, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	plan := []string{"Summarize A", "Summarize B"}
	sessionID := session.NewID("", plan)

	sub := o.Bus.SubscribeSession(ctx, sessionID)
	done := make(chan struct{})
	var seen []events.Type
	go func() {
		defer close(done)
		for e := range sub {
			seen = append(seen, e.Type)
			if e.Type == events.TypeDone || e.Type == events.TypeError {
				return
			}
		}
	}()

	o.RunFlat(context.Background(), "", plan)
	<-done

	if len(seen) == 0 || seen[len(seen)-1] != events.TypeDone {
		t.Fatalf("expected stream to end with done, got %v", seen)
	}
	if seen[0] != events.TypeStatus {
		t.Fatalf("expected first envelope to be status, got %v", seen)
	}
}

// TestRunFlatStartingStatusIsLanguageSpecific exercises spec §3/§8 property 7
// (language parity): a German-language run's starting status message is
// drawn from the German status table, not the English one.
func TestRunFlatStartingStatusIsLanguageSpecific(t *testing.T) {
	gw := &fakeGateway{}
	sr := &fakeSearch{}
	sc := &fakeScraper{}
	o := newTestOrchestrator(gw, sr, sc, t.TempDir())
	o.Language = "de"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	plan := []string{"Fasse A zusammen"}
	sessionID := session.NewID("", plan)

	sub := o.Bus.SubscribeSession(ctx, sessionID)
	done := make(chan struct{})
	var first events.Envelope
	got := false
	go func() {
		defer close(done)
		for e := range sub {
			if !got {
				first = e
				got = true
			}
			if e.Type == events.TypeDone || e.Type == events.TypeError {
				return
			}
		}
	}()

	o.RunFlat(context.Background(), "", plan)
	<-done

	want := statustext.Starting("de", len(plan))
	if first.Message != want {
		t.Fatalf("expected German starting status %q, got %q", want, first.Message)
	}
	if first.Message == statustext.Starting("en", len(plan)) {
		t.Fatalf("German status message must not match the English variant")
	}
}
