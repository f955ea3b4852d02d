package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"training-quiz-service/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a domain error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrContentNotFound):
		return http.StatusNotFound, "content_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusBadRequest, "question_not_found"
	case errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest, "option_not_found"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrSessionState):
		return http.StatusConflict, "session_state"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable, "storage"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "content_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Code: code, Message: err.Error()})
}
