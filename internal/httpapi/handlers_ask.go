package httpapi

import (
	"context"
	"net/http"

	"github.com/hyperifyio/veritas/internal/session"
)

type askStartRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	llmFields
}

type askStartResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleAskStart implements POST /ask/start (spec §6, §4.8 Ask mode): starts
// the six-stage verification pipeline in the background and returns
// immediately; progress is watched via GET /ask/events/{session_id}.
func (s *Server) handleAskStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req askStartRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateQuery(req.Question) {
		writeError(w, http.StatusBadRequest, "question is required and must not exceed the size limit")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	language := languageOrDefault(req.Language, s.Cfg.DefaultLanguage)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), "", language)
	question := session.TrimUserQuery(req.Question)
	sid := session.NewID(question, nil)

	if s.Asks != nil {
		s.Asks.Start(sid, question)
	}
	go func() {
		o.RunAsk(context.Background(), question)
		if s.Asks != nil {
			_ = s.Asks.Complete(sid)
		}
		logDropped(sid, s.Bus)
	}()

	writeJSON(w, http.StatusOK, askStartResponse{SessionID: sid, Status: "started", Message: "ask session started"})
}

// handleAskEvents implements GET /ask/events/{session_id} (spec §6 SSE).
func (s *Server) handleAskEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sid := sessionIDFromPath(r, "/ask/events")
	if sid == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	s.streamSSE(w, r, sid)
}

// handleAskList implements GET /ask/list (spec §6).
func (s *Server) handleAskList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.Asks == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []AskSession{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.Asks.List()})
}
