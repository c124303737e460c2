package httpapi

import (
	"net/http"

	"github.com/hyperifyio/veritas/internal/session"
)

type overviewRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	llmFields
}

type overviewResponse struct {
	SessionTitle   string   `json:"session_title,omitempty"`
	QueriesInitial []string `json:"queries_initial,omitempty"`
	RawResponse    string   `json:"raw_response,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// handleOverview implements POST /research/overview (spec §6, §4.5/§4.9
// setup pipeline: overview-queries generation).
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req overviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateQuery(req.Message) {
		writeError(w, http.StatusBadRequest, "message is required and must not exceed the size limit")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), "", s.Cfg.DefaultLanguage)
	overview, err := o.RunOverview(r.Context(), session.TrimUserQuery(req.Message))
	if err != nil {
		writeJSON(w, http.StatusOK, overviewResponse{Error: "overview generation failed"})
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		SessionTitle:   overview.SessionTitle,
		QueriesInitial: overview.Queries,
	})
}

type planRequest struct {
	UserQuery              string   `json:"user_query"`
	ClarificationQuestions []string `json:"clarification_questions"`
	ClarificationAnswers   []string `json:"clarification_answers"`
	SessionID              string   `json:"session_id"`
	AcademicMode           bool     `json:"academic_mode"`
	llmFields
}

type academicAreaOut struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type planResponse struct {
	PlanPoints      []string          `json:"plan_points,omitempty"`
	PlanText        string            `json:"plan_text,omitempty"`
	ContextState    string            `json:"context_state,omitempty"`
	AcademicBereich []academicAreaOut `json:"academic_bereiche,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// handlePlan implements POST /research/plan (spec §6, §4.5 Plan prompt).
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateQuery(req.UserQuery) {
		writeError(w, http.StatusBadRequest, "user_query is required and must not exceed the size limit")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), "", s.Cfg.DefaultLanguage)
	qas := clarificationQAs(req.ClarificationQuestions, req.ClarificationAnswers)
	query := session.TrimUserQuery(req.UserQuery)

	if req.AcademicMode {
		areas, err := o.PlanAcademic(r.Context(), query, qas)
		if err != nil {
			writeJSON(w, http.StatusOK, planResponse{Error: "plan generation failed"})
			return
		}
		out := make([]academicAreaOut, 0, len(areas))
		sessionAreas := make([]session.Area, 0, len(areas))
		for _, a := range areas {
			out = append(out, academicAreaOut{Title: a.Title, Points: a.Points})
			sessionAreas = append(sessionAreas, session.Area{Title: a.Title, Points: a.Points})
		}
		writeJSON(w, http.StatusOK, planResponse{
			AcademicBereich: out,
			ContextState: encodeContextState(planContext{
				UserQuery: query, ClarificationQuestions: req.ClarificationQuestions,
				ClarificationAnswers: req.ClarificationAnswers, AcademicMode: true,
				Plan: session.Plan{Areas: sessionAreas},
			}),
		})
		return
	}

	points, err := o.PlanFlat(r.Context(), query, qas)
	if err != nil {
		writeJSON(w, http.StatusOK, planResponse{Error: "plan generation failed"})
		return
	}
	writeJSON(w, http.StatusOK, planResponse{
		PlanPoints: points,
		ContextState: encodeContextState(planContext{
			UserQuery: query, ClarificationQuestions: req.ClarificationQuestions,
			ClarificationAnswers: req.ClarificationAnswers, AcademicMode: false,
			Plan: session.Plan{Points: points},
		}),
	})
}

type planReviseRequest struct {
	ContextState string `json:"context_state"`
	Feedback     string `json:"feedback"`
	SessionID    string `json:"session_id"`
	llmFields
}

// handlePlanRevise implements POST /research/plan/revise (spec §6): re-runs
// the Plan prompt with the caller's feedback folded in as an additional
// clarification turn, since the spec names no separate revision prompt.
func (s *Server) handlePlanRevise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req planReviseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctxState, err := decodeContextState(req.ContextState)
	if err != nil || !validateQuery(ctxState.UserQuery) {
		writeError(w, http.StatusBadRequest, "invalid or missing context_state")
		return
	}

	gw := s.gatewayFor(req.llmFields)
	o := s.newOrchestrator(gw, modelOrDefault(req.WorkModel, s.Cfg.LLMModel), "", s.Cfg.DefaultLanguage)
	qas := append(append([]string{}, clarificationQAs(ctxState.ClarificationQuestions, ctxState.ClarificationAnswers)...),
		"Revision feedback: "+req.Feedback)

	if ctxState.AcademicMode {
		areas, err := o.PlanAcademic(r.Context(), ctxState.UserQuery, qas)
		if err != nil {
			writeJSON(w, http.StatusOK, planResponse{Error: "plan revision failed"})
			return
		}
		out := make([]academicAreaOut, 0, len(areas))
		sessionAreas := make([]session.Area, 0, len(areas))
		for _, a := range areas {
			out = append(out, academicAreaOut{Title: a.Title, Points: a.Points})
			sessionAreas = append(sessionAreas, session.Area{Title: a.Title, Points: a.Points})
		}
		ctxState.Plan = session.Plan{Areas: sessionAreas}
		writeJSON(w, http.StatusOK, planResponse{AcademicBereich: out, ContextState: encodeContextState(ctxState)})
		return
	}

	points, err := o.PlanFlat(r.Context(), ctxState.UserQuery, qas)
	if err != nil {
		writeJSON(w, http.StatusOK, planResponse{Error: "plan revision failed"})
		return
	}
	ctxState.Plan = session.Plan{Points: points}
	writeJSON(w, http.StatusOK, planResponse{PlanPoints: points, ContextState: encodeContextState(ctxState)})
}
