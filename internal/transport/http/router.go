package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/domain"
)

const defaultPopularLimit = 3

// Handler serves the REST API over the quiz session controller.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// NewRouter wires the REST API, the live session socket, health and an
// optional metrics handler.
func NewRouter(service *app.QuizService, metrics http.Handler) *mux.Router {
	h := NewHandler(service)
	ws := NewWSHandler(service)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/ws", ws.ServeWS)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/sessions", h.startSession).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}", h.abandon).Methods(http.MethodDelete)
	v1.HandleFunc("/sessions/{id}/begin", h.begin).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/answers", h.answer).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/navigate", h.navigate).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/submit", h.submit).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/retry", h.retry).Methods(http.MethodPost)
	v1.HandleFunc("/users/{userId}/progress", h.progress).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userId}/modules/{moduleId}/sections/{section}", h.recordSection).Methods(http.MethodPut)
	v1.HandleFunc("/badges", h.badges).Methods(http.MethodGet)
	v1.HandleFunc("/modules/popular", h.popularModules).Methods(http.MethodGet)
	return r
}

type startRequest struct {
	UserID   string `json:"userId"`
	ModuleID string `json:"moduleId"`
}

type navigateRequest struct {
	Position int `json:"position"`
}

type sectionRequest struct {
	Completed bool `json:"completed"`
}

// resultError carries a scored result that could not be persisted.
type resultError struct {
	errorPayload
	Result domain.QuizResult `json:"result"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.StartSession(r.Context(), req.UserID, req.ModuleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Abandon(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Begin(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	var sub domain.AnswerSubmission
	if err := decode(r, &sub); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.Answer(r.Context(), mux.Vars(r)["id"], sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.Navigate(r.Context(), mux.Vars(r)["id"], req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Submit(r.Context(), mux.Vars(r)["id"])
	writeResult(w, result, err)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RetryPersist(r.Context(), mux.Vars(r)["id"])
	writeResult(w, result, err)
}

func writeResult(w http.ResponseWriter, result domain.QuizResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if errors.Is(err, domain.ErrStorage) {
		status, code := classify(err)
		writeJSON(w, status, resultError{errorPayload: errorPayload{Code: code, Message: err.Error()}, Result: result})
		return
	}
	writeError(w, err)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Progress(r.Context(), mux.Vars(r)["userId"]))
}

func (h *Handler) recordSection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	section, err := strconv.Atoi(vars["section"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: section must be an integer", domain.ErrValidation))
		return
	}
	var req sectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.service.RecordSection(r.Context(), vars["userId"], vars["moduleId"], section, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) badges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Badges())
}

func (h *Handler) popularModules(w http.ResponseWriter, r *http.Request) {
	limit := defaultPopularLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation))
			return
		}
		limit = n
	}
	modules, err := h.service.PopularModules(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body required", domain.ErrValidation)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrValidation, err)
	}
	return nil
}
