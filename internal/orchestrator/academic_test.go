package orchestrator

import (
	"context"
	"testing"

	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
)

func TestRunAcademicEmitsPerAreaEvents(t *testing.T) {
	gw := &fakeGateway{rules: []struct {
		matchSystem string
		response    string
	}{
		{matchSystem: "THINKING", response: "=== THINKING ===\nlook\n=== SEARCHES ===\nsearch 1: topic\n"},
		{matchSystem: "select exactly", response: "https://a.example\nhttps://b.example\n"},
		{matchSystem: "structured dossier", response: "Body [1][2].\n\n=== SOURCES ===\n[1] https://a.example — A\n[2] https://b.example — B\n\n## 💡 KEY LEARNINGS\nLearned something."},
		{matchSystem: "research editor", response: "Area section."},
	}}
	sr := &fakeSearch{results: map[string][]search.Result{
		"topic": {{Title: "A", URL: "https://a.example"}, {Title: "B", URL: "https://b.example"}},
	}}
	sc := &fakeScraper{pages: map[string]scrape.Page{
		"https://a.example": {URL: "https://a.example", Success: true, Content: "enough content about the topic for a test."},
		"https://b.example": {URL: "https://b.example", Success: true, Content: "more content about the topic for a test."},
	}}
	o := newTestOrchestrator(gw, sr, sc, t.TempDir())

	areas := []session.Area{
		{Title: "Area One", Points: []string{"Point A"}},
		{Title: "Area Two", Points: []string{"Point B"}},
	}
	var allPoints []string
	for _, a := range areas {
		allPoints = append(allPoints, a.Points...)
	}
	sessionID := session.NewID("", allPoints)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
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

	o.RunAcademic(context.Background(), "", areas)
	<-done

	var startCount, completeCount int
	for _, evt := range seen {
		if evt == events.TypeBereichStart {
			startCount++
		}
		if evt == events.TypeBereichComplete {
			completeCount++
		}
	}
	if startCount != 2 || completeCount != 2 {
		t.Fatalf("expected 2 area start/complete pairs, got start=%d complete=%d (events=%v)", startCount, completeCount, seen)
	}
	if seen[len(seen)-1] != events.TypeDone {
		t.Fatalf("expected stream to end with done, got %v", seen)
	}
}
