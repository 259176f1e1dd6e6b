package http

import (
	"net/http"
	"strconv"

	"quiz-funnel-service/internal/admin"
	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the authenticated admin API.
type AdminHandler struct {
	svc    *admin.Service
	auth   *admin.Authenticator
	logger logging.Logger
}

func NewAdminHandler(svc *admin.Service, auth *admin.Authenticator, logger logging.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, auth: auth, logger: logger}
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Get("/dashboard", h.dashboard)
		r.Get("/leads", h.leads)
		r.Get("/leads/export", h.exportLeads)
		r.Get("/leads/{id}", h.lead)
		r.Get("/leads/{id}/answers", h.leadAnswers)
		r.Get("/quizzes", h.quizzes)
		r.Get("/quizzes/{id}", h.quiz)
		r.Put("/quizzes/{id}", h.updateQuiz)
		r.Get("/quizzes/{id}/analytics", h.analytics)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Warn("admin login rejected", "username", req.Username)
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	stats, err := h.svc.Dashboard(r.Context(), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) leads(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	size, err := queryInt(r, "page_size", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.svc.Leads(r.Context(), page, size, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) exportLeads(w http.ResponseWriter, r *http.Request) {
	format, err := admin.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, h.logger, validation.Errors{{Field: "format", Message: "must be one of csv xlsx", Rule: "oneof"}})
		return
	}
	exp, err := h.svc.ExportLeads(r.Context(), r.URL.Query().Get("search"), format)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Body)
}

func (h *AdminHandler) lead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.svc.Lead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminHandler) leadAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.svc.LeadAnswers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *AdminHandler) quizzes(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Quizzes(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out == nil {
		out = []domain.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) quiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.svc.Quiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *AdminHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var upd domain.QuizUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	quiz, err := h.svc.UpdateQuiz(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *AdminHandler) analytics(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Analytics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.Errors{{Field: key, Message: "must be a non-negative integer", Rule: "min"}}
	}
	return n, nil
}
