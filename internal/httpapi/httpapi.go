// Package httpapi exposes the portal over HTTP: the guest-facing connect
// endpoints and the operator API behind session authentication.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// Handler provides all HTTP endpoints.
type Handler struct {
	portal   *portal.Service
	store    storage.Storage
	sessions *SessionStore
	logger   *slog.Logger
	logLevel *slog.LevelVar

	// GuestPage is the path of the static portal page served at
	// /guest/index. Empty serves 404; the redirect capture still works.
	GuestPage string
}

// NewHandler creates the HTTP handler.
func NewHandler(p *portal.Service, store storage.Storage, sessions *SessionStore,
	logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}
	return &Handler{
		portal:   p,
		store:    store,
		sessions: sessions,
		logger:   logger,
		logLevel: logLevel,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing to recover
		_ = err
	}
}
