package api

import (
	"encoding/json"
	"errors"
	"net/http"

	practicesession "github.com/aceprep/backend/internal/domain/practice_session"
	"github.com/aceprep/backend/internal/platform/logger"
	"github.com/aceprep/backend/internal/service"
)

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	practice *service.PracticeService
	logger   *logger.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(practice *service.PracticeService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		practice: practice,
		logger:   log.With("component", "api"),
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleSessionError maps service and session errors to HTTP responses.
// Returns true if an error was handled (caller should return).
func (h *Handler) handleSessionError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, practicesession.ErrInvalidSelection):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotComplete),
		errors.Is(err, practicesession.ErrNotReady),
		errors.Is(err, practicesession.ErrNoSelection),
		errors.Is(err, practicesession.ErrNotSubmitted),
		errors.Is(err, practicesession.ErrAlreadySubmitted),
		errors.Is(err, practicesession.ErrSessionClosed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("session error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
