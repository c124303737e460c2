// Package httpapi implements the local HTTP surface (spec §6): the NDJSON
// streaming research endpoints, the SSE passive-subscription endpoints, and
// the setup/plan/session/ask request-response endpoints. It is the thinnest
// possible adapter from net/http onto internal/orchestrator: every handler
// validates its request, builds the per-request llm.Gateway, and either
// calls a one-shot orchestrator method or streams one session's Event Bus.
//
// CORS, security headers, and port-conflict recovery are explicitly named
// in spec §1 as external (desktop-shell) concerns and are not implemented
// here; the listen address is Config.ListenAddr, which defaults to
// 127.0.0.1:8420 (spec §6's "local-only") and can be overridden.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/hyperifyio/veritas/internal/cache"
	"github.com/hyperifyio/veritas/internal/config"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/orchestrator"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
)

// Server bundles the shared infrastructure every handler needs.
type Server struct {
	Cfg         config.Config
	Bus         *events.Bus
	Checkpoints *session.Store
	Search      search.Provider
	Scraper     scrape.Scraper
	Asks        *AskStore
	LogRing     *events.LogRing

	// LLMCache, when set, is handed to every gatewayFor-constructed Gateway
	// so repeated completions against the same model/messages are served
	// from disk (spec has no cache TTL of its own; Cfg.CacheMaxAge's
	// maintenance sweep is what eventually evicts entries).
	LLMCache *cache.LLMCache

	// testGateway, when set, replaces gatewayFor's llm.New construction.
	// Tests use it to swap in a fake Gateway without an LLM endpoint;
	// production code never sets it.
	testGateway llm.Gateway
}

// NewServer wires a Server from already-constructed shared infrastructure.
func NewServer(cfg config.Config, bus *events.Bus, checkpoints *session.Store, searchProvider search.Provider, scraper scrape.Scraper, asks *AskStore) *Server {
	return &Server{Cfg: cfg, Bus: bus, Checkpoints: checkpoints, Search: searchProvider, Scraper: scraper, Asks: asks}
}

// Routes returns the server's mux (spec §6's endpoint table).
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/research/overview", s.handleOverview)
	mux.HandleFunc("/research/run", s.handleRun)
	mux.HandleFunc("/research/plan/revise", s.handlePlanRevise)
	mux.HandleFunc("/research/plan", s.handlePlan)
	mux.HandleFunc("/research/deep", s.handleDeep)
	mux.HandleFunc("/research/academic", s.handleAcademic)
	mux.HandleFunc("/research/events/", s.handleEvents)
	mux.HandleFunc("/research/sessions", s.handleSessions)
	mux.HandleFunc("/research/session/", s.handleSession)
	mux.HandleFunc("/research/resume", s.handleResume)
	mux.HandleFunc("/ask/start", s.handleAskStart)
	mux.HandleFunc("/ask/events/", s.handleAskEvents)
	mux.HandleFunc("/ask/list", s.handleAskList)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "veritas"})
}

// handleIndex is a bare convenience redirect for anyone hitting the server
// root in a browser; it carries no semantics of its own.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/health", http.StatusFound)
}

// llmFields is the provider/credential envelope every research-stage request
// body carries (spec §6: api_key, provider, work_model, base_url).
type llmFields struct {
	APIKey    string `json:"api_key"`
	Provider  string `json:"provider"`
	WorkModel string `json:"work_model"`
	BaseURL   string `json:"base_url"`
}

func (s *Server) gatewayFor(f llmFields) llm.Gateway {
	if s.testGateway != nil {
		return s.testGateway
	}
	provider := llm.OpenAICompatible
	if strings.EqualFold(f.Provider, string(llm.AnthropicNative)) {
		provider = llm.AnthropicNative
	}
	base := f.BaseURL
	if base == "" {
		base = s.Cfg.LLMBaseURL
	}
	key := f.APIKey
	if key == "" {
		key = s.Cfg.LLMAPIKey
	}
	return llm.New(llm.Config{Provider: provider, BaseURL: base, APIKey: key, SSLVerify: true, Cache: s.LLMCache})
}

func modelOrDefault(requested, fallback string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return fallback
}

// supportedLanguages are the only two response languages the status tables
// and synthesis prompts distinguish (spec §3's de/en status-table split).
var supportedLanguages = []language.Tag{language.German, language.English}
var languageMatcher = language.NewMatcher(supportedLanguages)

// languageOrDefault normalizes a caller-supplied BCP 47 language tag (e.g.
// "de-DE", "en-US", "DE") down to the "de"/"en" the status tables and prompt
// builders key on, falling back to fallback for anything unparseable or
// outside the supported set.
func languageOrDefault(requested, fallback string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return fallback
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return fallback
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return fallback
	}
	base, _ := supportedLanguages[index].Base()
	return base.String()
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a generic, sanitized error body (spec §7: client errors
// get a generic HTTP 400, internal errors a generic HTTP 500 — never a raw
// stack trace or provider error leaked to the caller).
func writeError(w http.ResponseWriter, status int, public string) {
	writeJSON(w, status, map[string]any{"error": public})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2<<20))
	return dec.Decode(dst)
}

// validateQuery enforces spec §3's user_query length cap (testable property
// 6: "no field exceeding its documented cap is accepted").
func validateQuery(q string) bool {
	q = strings.TrimSpace(q)
	return q != "" && len(q) <= session.MaxUserQueryLen
}

// streamNDJSON subscribes to sessionID's Event Bus, starts the orchestrator
// run in its own goroutine against a background context (spec §5: "subscriber
// disconnect is not propagated into the orchestrator; the orchestrator always
// runs to completion"), and copies envelopes onto w as they arrive, one JSON
// object per line, flushing after each (spec §6's NDJSON stream contract).
func (s *Server) streamNDJSON(w http.ResponseWriter, r *http.Request, sessionID string, start func(ctx context.Context)) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)

	ch := s.Bus.SubscribeSession(r.Context(), sessionID)
	go start(context.Background())

	enc := json.NewEncoder(w)
	for env := range ch {
		if err := enc.Encode(env); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// streamSSE is the passive-subscription counterpart of streamNDJSON (spec
// §6's SSE endpoints): it never starts a run, only drains whatever the
// session's Event Bus already has or will emit, wrapped in "data: ...\n\n"
// frames, terminating on done/error or client disconnect.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, sessionID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch := s.Bus.SubscribeSession(r.Context(), sessionID)
	for env := range ch {
		data, err := json.Marshal(env)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

func sessionIDFromPath(r *http.Request, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

func (s *Server) newOrchestrator(gw llm.Gateway, workModel, finalModel, lang string) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Bus:         s.Bus,
		Checkpoints: s.Checkpoints,
		Search:      s.Search,
		Scraper:     s.Scraper,
		Gateway:     gw,
		WorkModel:   workModel,
		FinalModel:  finalModel,
		Language:    lang,
		BackupDir:   s.Cfg.BackupDir,
		PDFExport:   s.Cfg.PDFExport,
		LogRing:     s.LogRing,
	}
}

func logDropped(sessionID string, bus *events.Bus) {
	if n := bus.Dropped(sessionID); n > 0 {
		log.Warn().Str("session_id", sessionID).Uint64("dropped", n).Msg("event queue overflow")
	}
}
