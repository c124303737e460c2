package scrape

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperifyio/veritas/internal/extract"
	"github.com/hyperifyio/veritas/internal/fetch"
)

// stubExtractor lets a test swap in a fixed Document, proving Scrape routes
// through HTTPScraper.Extractor rather than calling extract.FromHTML directly.
type stubExtractor struct{ doc extract.Document }

func (s stubExtractor) Extract([]byte) extract.Document { return s.doc }

// testURL names a public-looking host so ssrf.Validate accepts it. httptest
// servers listen on loopback, which Validate rejects, so dialTo routes every
// connection of the returned client to the test server instead.
const testURL = "http://scrape-test.example/"

func dialTo(srv *httptest.Server) *http.Client {
	addr := srv.Listener.Addr().String()
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		},
	}}
}

func newScraper(t *testing.T, handler http.HandlerFunc) (*HTTPScraper, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	return &HTTPScraper{
		Fetch: &fetch.Client{
			HTTPClient:        dialTo(srv),
			UserAgent:         "veritas-test",
			MaxAttempts:       1,
			PerRequestTimeout: 5 * time.Second,
		},
		UserAgent: "veritas-test",
	}, srv
}

func TestScrapeSuccess(t *testing.T) {
	s, srv := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><main><p>" + samplePara() + "</p></main></body></html>"))
	})
	defer srv.Close()

	pages := s.Scrape(context.Background(), []string{testURL}, 5*time.Second)
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if !pages[0].Success {
		t.Fatalf("expected success, got error %q", pages[0].Error)
	}
}

func TestScrapeEmptyBodyFails(t *testing.T) {
	s, srv := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	})
	defer srv.Close()

	pages := s.Scrape(context.Background(), []string{testURL}, 5*time.Second)
	if pages[0].Success {
		t.Fatalf("expected near-empty body to fail")
	}
}

func TestScrapeRejectsUnsafeURL(t *testing.T) {
	s := &HTTPScraper{Fetch: &fetch.Client{MaxAttempts: 1}}
	pages := s.Scrape(context.Background(), []string{"http://169.254.169.254/latest/meta-data"}, time.Second)
	if pages[0].Success {
		t.Fatalf("expected ssrf rejection")
	}
}

func TestScrapeCapsBatchSize(t *testing.T) {
	s := &HTTPScraper{Fetch: &fetch.Client{MaxAttempts: 1}}
	urls := make([]string, MaxURLsPerBatch+10)
	for i := range urls {
		urls[i] = "http://169.254.169.254/x"
	}
	pages := s.Scrape(context.Background(), urls, time.Second)
	if len(pages) != MaxURLsPerBatch {
		t.Fatalf("expected batch capped to %d, got %d", MaxURLsPerBatch, len(pages))
	}
}

// TestScrapeUsesCustomExtractor exercises HTTPScraper.Extractor: a stub
// extractor's fixed content is what Scrape returns, regardless of the HTML
// body served, proving the field is actually consulted.
func TestScrapeUsesCustomExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>irrelevant</p></body></html>"))
	}))
	defer srv.Close()

	s := &HTTPScraper{
		Fetch: &fetch.Client{
			HTTPClient:        dialTo(srv),
			UserAgent:         "veritas-test",
			MaxAttempts:       1,
			PerRequestTimeout: 5 * time.Second,
		},
		UserAgent: "veritas-test",
		Extractor: stubExtractor{doc: extract.Document{Title: "Stub", Text: samplePara()}},
	}

	pages := s.Scrape(context.Background(), []string{testURL}, 5*time.Second)
	if len(pages) != 1 || !pages[0].Success {
		t.Fatalf("expected success via stub extractor, got %+v", pages)
	}
	if pages[0].Content == "" {
		t.Fatalf("expected stub extractor's content to be used")
	}
}

func samplePara() string {
	s := ""
	for i := 0; i < 20; i++ {
		s += "word "
	}
	return s
}
