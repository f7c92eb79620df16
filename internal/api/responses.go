package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/coursework/internal/platform/logger"
	"github.com/phrazzld/coursework/internal/redact"
)

// errorResponse is the body of every non-2xx diagnostics response.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes message to the client and logs the redacted err,
// which is never sent. 5xx responses log at ERROR, everything else at DEBUG.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	requestID := chimw.GetReqID(r.Context())

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.Int("status_code", status),
		slog.String("path", r.URL.Path),
		slog.String("user_message", message),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", redact.Error(err)))
	}
	logger.FromContext(r.Context()).LogAttrs(r.Context(), level, "diagnostics error response", attrs...)

	respondJSON(w, r, status, errorResponse{Error: message, RequestID: requestID})
}
