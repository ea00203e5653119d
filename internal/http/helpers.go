package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	applog "ensemble/internal/log"
	"ensemble/internal/middleware/security"
	"ensemble/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes. Anything unexpected is
// logged and answered with an opaque body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, services.ErrInputMissing):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, services.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		errorType := applog.ErrorTypeInternal
		if errors.Is(err, services.ErrCollaborator) {
			errorType = applog.ErrorTypeUpstream
		}
		s.log.LogError(r.Context(), "Request failed", err, errorType, operation,
			applog.NewFields().WithClientIP(security.ClientIP(r)))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "server error"})
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
