package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/contextgraph/context-graph/engine/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Internal errors are logged
// and sanitized.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, detail(err.Error()))
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, detail(err.Error()))
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidRelation),
		errors.Is(err, domain.ErrInvalidContent),
		errors.Is(err, domain.ErrRestrictedQuery),
		errors.Is(err, domain.ErrEmptyContent):
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, detail("internal server error"))
	}
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", "", domain.ErrInvalidContent)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

func queryBool(r *http.Request, key string) *bool {
	if raw := r.URL.Query().Get(key); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			return &b
		}
	}
	return nil
}
