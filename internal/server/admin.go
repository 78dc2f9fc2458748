package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-devgate/internal/domain"
)

// AdminPrefix is reserved for the dev server's own endpoints.
const AdminPrefix = "/__devgate/"

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

// EventReader returns recent proxy events, newest first.
type EventReader interface {
	Recent(limit int) ([]domain.ProxyEvent, error)
}

// NewAdminHandler serves the healthz and events endpoints under AdminPrefix.
func NewAdminHandler(events EventReader) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AdminPrefix+"healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET "+AdminPrefix+"events", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultEventsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxEventsLimit)
		}

		evts, err := events.Recent(limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if evts == nil {
			evts = []domain.ProxyEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": evts})
	})
	return mux
}

// WithAdmin routes AdminPrefix to admin and everything else to next untouched.
// next sees the raw request path, so /api//users reaches it unchanged.
func WithAdmin(admin, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, AdminPrefix) {
			admin.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
