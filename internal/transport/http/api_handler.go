package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-funnel-service/internal/app"
	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
	"github.com/go-chi/chi/v5"
)

// APIHandler serves the funnel REST API used by browser-driven renderers.
type APIHandler struct {
	funnel    *app.FunnelService
	templates app.TemplateResolver
	logger    logging.Logger
}

func NewAPIHandler(funnel *app.FunnelService, templates app.TemplateResolver, logger logging.Logger) *APIHandler {
	return &APIHandler{funnel: funnel, templates: templates, logger: logger}
}

func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/quizzes", h.listQuizzes)
	r.Get("/quizzes/{slug}/template", h.template)
	r.Post("/quizzes/{slug}/sessions", h.createSession)
	r.Post("/sessions/{sessionID}/answers", h.recordAnswer)
	r.Post("/sessions/{sessionID}/events", h.recordEvent)
	r.Post("/sessions/{sessionID}/complete", h.completeSession)
	r.Post("/leads", h.createLead)
	r.Post("/webhook/{provider}", h.webhook)
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.funnel.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *APIHandler) template(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.Resolve(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

type createSessionRequest struct {
	QuizID string `json:"quiz_id"`
}

func (h *APIHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	session, err := h.funnel.CreateSessionForSlug(r.Context(), chi.URLParam(r, "slug"), req.QuizID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type answerRequest struct {
	StepID   string `json:"step_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *APIHandler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	err := h.funnel.RecordAnswer(r.Context(), domain.Answer{
		SessionID: chi.URLParam(r, "sessionID"),
		StepID:    req.StepID,
		Question:  req.Question,
		Answer:    req.Answer,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

type eventRequest struct {
	EventType domain.EventType `json:"event_type"`
	StepID    string           `json:"step_id"`
	EventData map[string]any   `json:"event_data"`
}

func (h *APIHandler) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var missing validation.Errors
	if req.EventType == "" {
		missing = append(missing, validation.FieldError{Field: "event_type", Message: "is required", Rule: "required"})
	}
	if req.EventData == nil {
		missing = append(missing, validation.FieldError{Field: "event_data", Message: "is required", Rule: "required"})
	}
	if len(missing) > 0 {
		writeError(w, r, h.logger, missing)
		return
	}
	err := h.funnel.RecordEvent(r.Context(), domain.Event{
		SessionID: chi.URLParam(r, "sessionID"),
		Type:      req.EventType,
		StepID:    req.StepID,
		Data:      req.EventData,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

type completeResponse struct {
	ID         string    `json:"id"`
	FinishedAt time.Time `json:"finished_at"`
}

func (h *APIHandler) completeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	at, err := h.funnel.CompleteSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{ID: sessionID, FinishedAt: at})
}

type leadResponse struct {
	Success bool                `json:"success"`
	Data    *domain.LeadReceipt `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func (h *APIHandler) createLead(w http.ResponseWriter, r *http.Request) {
	var in domain.LeadInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, leadResponse{Error: err.Error()})
		return
	}
	receipt, err := h.funnel.CreateLead(r.Context(), in)
	if err != nil {
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			logging.FromContext(r.Context(), h.logger).LogError(err, "lead capture failed")
			msg = "failed to save lead"
		}
		writeJSON(w, status, leadResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, leadResponse{Success: true, Data: &receipt})
}

func (h *APIHandler) webhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	n, _ := io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20))
	logging.FromContext(r.Context(), h.logger).Info("webhook received",
		"provider", strings.ToLower(provider),
		"bytes", n,
		"content_type", r.Header.Get("Content-Type"))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}
