package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/orchestrator"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

type runRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	MaxStep   int    `json:"max_step"`
	Language  string `json:"language"`
	llmFields
}

// handleRun implements POST /research/run (spec §6, §2 "Setup Pipeline"
// row): overview queries (step 1) -> initial search (step 2) -> clarifying
// questions (step 3), streamed as NDJSON. max_step above 3 is a 400 (spec §9
// Open Question 3: "undefined in the source"; a new server gives a clear
// error rather than silently short-circuiting).
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req runRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateQuery(req.Message) {
		writeError(w, http.StatusBadRequest, "message is required and must not exceed the size limit")
		return
	}
	if req.MaxStep < 1 || req.MaxStep > 3 {
		writeError(w, http.StatusBadRequest, "max_step must be between 1 and 3")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	language := languageOrDefault(req.Language, s.Cfg.DefaultLanguage)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), "", language)
	query := session.TrimUserQuery(req.Message)
	sid := session.NewID(query, nil)

	s.streamNDJSON(w, r, sid, func(ctx context.Context) {
		s.runSetupPipeline(ctx, o, sid, query, req.MaxStep)
		logDropped(sid, s.Bus)
	})
}

func (s *Server) runSetupPipeline(ctx context.Context, o *orchestrator.Orchestrator, sid, query string, maxStep int) {
	s.Bus.Emit(sid, events.Envelope{Type: events.TypeSessionID, Data: map[string]any{"session_id": sid}})

	overview, err := o.RunOverview(ctx, query)
	if err != nil {
		s.Bus.Emit(sid, events.Envelope{Type: events.TypeError, Message: statustext.OverviewFailed(o.Language)})
		return
	}
	s.Bus.Emit(sid, events.Envelope{Type: events.TypeStepDone, Message: "overview", Data: map[string]any{
		"session_title": overview.SessionTitle, "queries": overview.Queries,
	}})
	if maxStep == 1 {
		s.Bus.Emit(sid, events.Envelope{Type: events.TypeDone, Data: map[string]any{
			"session_title": overview.SessionTitle, "queries_initial": overview.Queries,
		}})
		return
	}

	byQuery := search.RunMulti(ctx, s.Search, overview.Queries, 10)
	formatted, flat := search.FormatNumbered(byQuery, overview.Queries, 1)
	var urls []string
	for _, res := range flat {
		urls = append(urls, res.URL)
		if len(urls) >= 5 {
			break
		}
	}
	s.Bus.Emit(sid, events.Envelope{Type: events.TypeSources, Data: map[string]any{"urls": urls}})

	var overviewContent strings.Builder
	if s.Scraper != nil && len(urls) > 0 {
		for _, p := range s.Scraper.Scrape(ctx, urls, 15*time.Second) {
			if p.Success {
				overviewContent.WriteString("=== QUELLE: " + p.URL + " ===\n")
				overviewContent.WriteString(p.Content)
				overviewContent.WriteString("\n\n")
			}
		}
	}
	if maxStep == 2 {
		s.Bus.Emit(sid, events.Envelope{Type: events.TypeDone, Data: map[string]any{
			"session_title": overview.SessionTitle, "queries_initial": overview.Queries, "formatted_results": formatted,
		}})
		return
	}

	clarifyRaw, err := o.RunClarify(ctx, overviewContent.String())
	if err != nil {
		s.Bus.Emit(sid, events.Envelope{Type: events.TypeError, Message: statustext.ClarificationFailed(o.Language)})
		return
	}
	s.Bus.Emit(sid, events.Envelope{Type: events.TypeStepDone, Message: "clarify", Data: map[string]any{"raw_response": clarifyRaw}})
	s.Bus.Emit(sid, events.Envelope{Type: events.TypeDone, Data: map[string]any{
		"session_title": overview.SessionTitle, "queries_initial": overview.Queries, "clarification": clarifyRaw,
	}})
}

type deepRequest struct {
	ContextState string `json:"context_state"`
	SessionID    string `json:"session_id"`
	FinalModel   string `json:"final_model"`
	Language     string `json:"language"`
	llmFields
}

// handleDeep implements POST /research/deep (spec §6): Flat Deep Research
// mode over the plan carried in context_state.
func (s *Server) handleDeep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req deepRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctxState, err := decodeContextState(req.ContextState)
	if err != nil || !validateQuery(ctxState.UserQuery) || len(ctxState.Plan.Points) == 0 {
		writeError(w, http.StatusBadRequest, "invalid or missing context_state (flat plan required)")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	language := languageOrDefault(req.Language, s.Cfg.DefaultLanguage)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), modelOrDefault(req.FinalModel, s.Cfg.FinalModel), language)

	sid := session.NewID(ctxState.UserQuery, ctxState.Plan.Points)
	s.streamNDJSON(w, r, sid, func(ctx context.Context) {
		o.RunFlat(ctx, ctxState.UserQuery, ctxState.Plan.Points)
		logDropped(sid, s.Bus)
	})
}

type academicRequest struct {
	ContextState string `json:"context_state"`
	SessionID    string `json:"session_id"`
	FinalModel   string `json:"final_model"`
	Language     string `json:"language"`
	llmFields
}

// handleAcademic implements POST /research/academic (spec §6): Academic mode
// over the area->points plan carried in context_state.
func (s *Server) handleAcademic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req academicRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctxState, err := decodeContextState(req.ContextState)
	if err != nil || !validateQuery(ctxState.UserQuery) || len(ctxState.Plan.Areas) == 0 {
		writeError(w, http.StatusBadRequest, "invalid or missing context_state (academic plan required)")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	language := languageOrDefault(req.Language, s.Cfg.DefaultLanguage)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), modelOrDefault(req.FinalModel, s.Cfg.FinalModel), language)

	var allPoints []string
	for _, a := range ctxState.Plan.Areas {
		allPoints = append(allPoints, a.Points...)
	}
	sid := session.NewID(ctxState.UserQuery, allPoints)
	s.streamNDJSON(w, r, sid, func(ctx context.Context) {
		o.RunAcademic(ctx, ctxState.UserQuery, ctxState.Plan.Areas)
		logDropped(sid, s.Bus)
	})
}

type resumeRequest struct {
	SessionID  string `json:"session_id"`
	FinalModel string `json:"final_model"`
	Language   string `json:"language"`
	llmFields
}

// handleResume implements POST /research/resume (spec §6, §4.7, testable
// property S4): loads the checkpoint synchronously so an unknown session id
// fails the request instead of opening a stream, then resumes.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req resumeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if s.Checkpoints == nil {
		writeError(w, http.StatusInternalServerError, "checkpoint store not configured")
		return
	}
	if _, ok, err := s.Checkpoints.Load(req.SessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load checkpoint")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "unknown session_id")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	language := languageOrDefault(req.Language, s.Cfg.DefaultLanguage)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), modelOrDefault(req.FinalModel, s.Cfg.FinalModel), language)

	s.streamNDJSON(w, r, req.SessionID, func(ctx context.Context) {
		_ = o.RunResume(ctx, req.SessionID)
		logDropped(req.SessionID, s.Bus)
	})
}

// handleEvents implements GET /research/events/{session_id} (spec §6 SSE).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sid := sessionIDFromPath(r, "/research/events")
	if sid == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	s.streamSSE(w, r, sid)
}

// handleSessions implements GET /research/sessions (spec §6, §4.7 List).
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.Checkpoints == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []session.Summary{}})
		return
	}
	list, err := s.Checkpoints.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

// handleSession implements GET /research/session/{id} (spec §6).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sid := sessionIDFromPath(r, "/research/session")
	if sid == "" || s.Checkpoints == nil {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	cp, ok, err := s.Checkpoints.Load(sid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load checkpoint")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session_id")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}
