package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/middleware"
)

// maxRequestBody bounds connect and login payloads.
const maxRequestBody = 64 * 1024

// NewRouter builds the API router.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(h.logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.MaxBodySize(maxRequestBody))
	r.Use(chimiddleware.Recoverer)

	// Public endpoints
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Get("/guest/s/{site}", h.HandleGuestRedirect)
	r.Get("/guest/index", h.HandleGuestPage)

	r.Post("/api/connect", h.HandleConnect)
	r.Get("/api/status/{mac}", h.HandleStatus)
	r.Post("/api/login", h.HandleLogin)
	r.Post("/api/logout", h.HandleLogout)
	r.Post("/api/user/login", h.HandleUserLogin)

	// Admin creation gates on a session itself so a fresh install can
	// bootstrap its first admin.
	r.Post("/api/admins", h.HandleCreateAdmin)

	// Operator API (session auth)
	r.Route("/api/guests", func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/", h.HandleListGuests)
		r.Post("/connect", h.HandleDirectConnect)
		r.Post("/{id}/approve", h.HandleApprove)
		r.Post("/{id}/reject", h.HandleReject)
		r.Post("/{id}/disconnect", h.HandleDisconnect)
		r.Delete("/{id}", h.HandleDeleteGuest)
	})

	r.Route("/api/approvers", func(r chi.Router) {
		// Code issuance authenticates with the approver's own credentials.
		r.Put("/code", h.HandleIssueCode)

		r.With(h.RequireSession).Get("/", h.HandleListApprovers)
		r.With(h.RequireSession).Post("/", h.HandleCreateApprover)
		r.With(h.RequireSession).Put("/{id}", h.HandleUpdateApprover)
		r.With(h.RequireSession).Delete("/{id}", h.HandleDeleteApprover)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/", h.HandleListUsers)
		r.Post("/", h.HandleCreateUser)
		r.Delete("/{id}", h.HandleDeleteUser)
	})

	r.With(h.RequireSession).Get("/api/admins", h.HandleListAdmins)
	r.With(h.RequireSession).Delete("/api/admins/{id}", h.HandleDeleteAdmin)
	r.With(h.RequireSession).Post("/api/loglevel", h.HandleSetLogLevel)

	return r
}
