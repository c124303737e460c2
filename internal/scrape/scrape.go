// Package scrape implements the Scrape half of the Source Fetcher (spec
// §4.3): SSRF-validated, sequential, rate-limited page fetches through a
// shared HTTP client, with the default HTTP-backed Scraper standing in for
// the external stealth browser named in §1 (out of scope for the core).
package scrape

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/veritas/internal/cache"
	"github.com/hyperifyio/veritas/internal/extract"
	"github.com/hyperifyio/veritas/internal/fetch"
	"github.com/hyperifyio/veritas/internal/robots"
	"github.com/hyperifyio/veritas/internal/ssrf"
)

// MaxURLsPerBatch bounds a single Scrape call (spec §4.3).
const MaxURLsPerBatch = 100

// MaxResponseSize truncates extracted page text (spec §4.3, "10 MB").
const MaxResponseSize = 10 * 1024 * 1024

// MinSignificantChars below which a scrape counts as a failure (spec §4.3).
const MinSignificantChars = 50

// InterRequestDelay is the minimum spacing between sequential scrapes
// through the shared browser/session (spec §4.3, §5).
const InterRequestDelay = 500 * time.Millisecond

// Page is one scraped result (spec's ScrapedPage).
type Page struct {
	URL     string
	Success bool
	Content string
	Error   string
}

// Scraper is the external contract: navigate(url, timeout) -> visible_text
// (spec §6), implemented sequentially from one session per batch.
type Scraper interface {
	Scrape(ctx context.Context, urls []string, timeout time.Duration) []Page
}

// HTTPScraper is the default Scraper: fetch + robots check + HTML extraction.
// It stands in for the real stealth browser, which is an external
// collaborator per spec §1.
type HTTPScraper struct {
	Fetch       *fetch.Client
	Robots      *robots.Manager
	UserAgent   string
	HonorRobots bool

	// Extractor converts fetched HTML to plain text. Nil defaults to
	// extract.HeuristicExtractor, the <main>/<article>-preferring strategy;
	// the field exists so a future readability strategy can replace it
	// without touching Scrape's SSRF/robots/truncation logic.
	Extractor extract.Extractor
}

func (s *HTTPScraper) extractor() extract.Extractor {
	if s.Extractor != nil {
		return s.Extractor
	}
	return extract.HeuristicExtractor{}
}

// Scrape processes urls strictly sequentially, validating each with ssrf and
// honoring robots rules before fetching, truncating content to
// MaxResponseSize, and treating near-empty bodies as failures.
func (s *HTTPScraper) Scrape(ctx context.Context, urls []string, timeout time.Duration) []Page {
	if len(urls) > MaxURLsPerBatch {
		urls = urls[:MaxURLsPerBatch]
	}
	out := make([]Page, 0, len(urls))
	for i, u := range urls {
		if i > 0 {
			select {
			case <-ctx.Done():
				out = append(out, Page{URL: u, Success: false, Error: "context cancelled"})
				continue
			case <-time.After(InterRequestDelay):
			}
		}
		out = append(out, s.scrapeOne(ctx, u, timeout))
	}
	return out
}

func (s *HTTPScraper) scrapeOne(ctx context.Context, rawURL string, timeout time.Duration) Page {
	if !ssrf.Validate(rawURL) {
		log.Warn().Str("url", rawURL).Msg("scrape: url discarded by ssrf policy")
		return Page{URL: rawURL, Success: false, Error: "url rejected by ssrf policy"}
	}
	if s.HonorRobots && s.Robots != nil {
		if blocked := s.isBlockedByRobots(ctx, rawURL); blocked {
			return Page{URL: rawURL, Success: false, Error: "disallowed by robots.txt"}
		}
	}
	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	body, _, err := s.Fetch.Get(reqCtx, rawURL)
	if err != nil {
		return Page{URL: rawURL, Success: false, Error: sanitizeFetchError(err)}
	}
	if len(body) > MaxResponseSize {
		body = body[:MaxResponseSize]
	}
	doc := s.extractor().Extract(body)
	text := strings.TrimSpace(doc.Text)
	if countSignificant(text) < MinSignificantChars {
		return Page{URL: rawURL, Success: false, Error: "empty or near-empty page"}
	}
	return Page{URL: rawURL, Success: true, Content: text}
}

func (s *HTTPScraper) isBlockedByRobots(ctx context.Context, rawURL string) bool {
	robotsURL := deriveRobotsURL(rawURL)
	if robotsURL == "" {
		return false
	}
	rules, _, err := s.Robots.Get(ctx, robotsURL)
	if err != nil {
		// Unreachable/invalid robots.txt is treated as permissive, matching
		// the teacher's conservative "absent means allowed" default.
		return false
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.RequestURI()
	}
	return !rules.IsAllowed(s.UserAgent, path)
}

func deriveRobotsURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/robots.txt"
}

func countSignificant(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			n++
		}
	}
	return n
}

func sanitizeFetchError(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// NewDefaultFetchClient builds the fetch.Client the HTTPScraper uses,
// sharing the cache-aware, bounded-concurrency configuration the teacher's
// app wiring used for page fetches.
func NewDefaultFetchClient(httpClient *http.Client, userAgent string, httpCache *cache.HTTPCache, maxConcurrent int) *fetch.Client {
	return &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         userAgent,
		MaxAttempts:       2,
		PerRequestTimeout: 45 * time.Second,
		Cache:             httpCache,
		RedirectMaxHops:   5,
		MaxConcurrent:     maxConcurrent,
	}
}
