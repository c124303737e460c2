package search

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	calls   []string
	results map[string][]Result
	failOn  string
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	s.calls = append(s.calls, query)
	if query == s.failOn {
		return nil, errors.New("boom")
	}
	return s.results[query], nil
}

func TestRunMultiNeverPanicsOnFailure(t *testing.T) {
	p := &stubProvider{failOn: "bad", results: map[string][]Result{"good": {{Title: "t", URL: "u"}}}}
	out := RunMulti(context.Background(), p, []string{"bad", "good"}, 10)
	if out["bad"] != nil {
		t.Fatalf("expected nil results for failing query, got %v", out["bad"])
	}
	if len(out["good"]) != 1 {
		t.Fatalf("expected 1 result for good query, got %d", len(out["good"]))
	}
}

func TestSanitizeQuery(t *testing.T) {
	got := SanitizeQuery(`  "hello world"  `)
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatNumberedContinuesCounter(t *testing.T) {
	byQuery := map[string][]Result{
		"a": {{Title: "A1", URL: "u1"}},
		"b": {{Title: "B1", URL: "u2"}, {Title: "B2", URL: "u3"}},
	}
	text, flat := FormatNumbered(byQuery, []string{"a", "b"}, 1)
	if len(flat) != 3 {
		t.Fatalf("flat len = %d", len(flat))
	}
	wantPrefixes := []string{"[1] A1", "[2] B1", "[3] B2"}
	for _, p := range wantPrefixes {
		if !contains(text, p) {
			t.Fatalf("expected %q in %q", p, text)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
