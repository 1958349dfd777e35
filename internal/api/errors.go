package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/comigor/echoal-go/internal/chat"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/logger"
	"github.com/comigor/echoal-go/internal/settings"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("invalid JSON body")

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps an error from the service layer to an HTTP status.
func statusFor(err error) int {
	var verr *settings.ValidationError
	switch {
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrEmptyTitle),
		errors.Is(err, errBadRequest),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends {"detail": ...}. Server errors are logged; the invariant
// ones loudly.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	switch {
	case errors.Is(err, history.ErrInvariant):
		logger.L.Error("store invariant violated", "method", r.Method, "path", r.URL.Path, "error", err)
	case status >= http.StatusInternalServerError:
		logger.L.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if errors.Is(err, history.ErrNotFound) {
		detail = "Conversation not found"
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("failed to encode response", "error", err)
	}
}
