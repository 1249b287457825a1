package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/audit"
	"github.com/baron-png/quality-core/internal/saga"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

type errorResponse struct {
	Error string `json:"error"`
}

// sagaErrorResponse carries enough detail for a client to know which step
// failed and whether local state needs manual reconciliation.
type sagaErrorResponse struct {
	Error         string   `json:"error"`
	Workflow      string   `json:"workflow"`
	Step          string   `json:"step"`
	State         string   `json:"state"`
	Uncompensated []string `json:"uncompensated,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps service-layer errors to HTTP responses. Saga
// failures are reported with the failing step; everything else maps by
// sentinel.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var sagaErr *saga.Error
	if errors.As(err, &sagaErr) {
		writeSagaError(w, sagaErr)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, audit.ErrTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "a collaborating service is unavailable")
	case strings.Contains(err.Error(), "SQLSTATE 23505"):
		writeError(w, http.StatusConflict, "resource already exists")
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeSagaError reports a failed workflow. A clean rollback maps by the
// root cause (the caller can fix the input and retry); a partial failure is
// always a 500 because local state needs operator attention first.
func writeSagaError(w http.ResponseWriter, e *saga.Error) {
	status := http.StatusInternalServerError
	if e.State == saga.StateRolledBack {
		switch {
		case errors.Is(e.Err, domain.ErrConflict):
			status = http.StatusConflict
		case errors.Is(e.Err, domain.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(e.Err, domain.ErrUnauthorized):
			status = http.StatusForbidden
		case errors.Is(e.Err, domain.ErrUnavailable):
			status = http.StatusBadGateway
		}
	}

	writeJSON(w, status, sagaErrorResponse{
		Error:         e.Err.Error(),
		Workflow:      e.Workflow,
		Step:          e.Step,
		State:         string(e.State),
		Uncompensated: e.Uncompensated,
	})
}

// writeInternalError logs the actual error server-side and returns a generic
// message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
