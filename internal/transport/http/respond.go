package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain and validation errors onto HTTP status codes.
func statusFor(err error) int {
	var ve validation.Errors
	switch {
	case errors.As(err, &ve), errors.Is(err, domain.ErrInvalidEventType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrLeadNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var ve validation.Errors
	if errors.As(err, &ve) {
		body.Fields = ve
	}
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context(), logger).LogError(err, "request failed")
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return validation.Errors{{Field: "body", Message: "must be valid JSON", Rule: "json"}}
	}
	return nil
}
