package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// AdminRequest is the request body for POST /api/admins.
type AdminRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminResponse represents an admin in API responses. Credentials are never
// included.
type AdminResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// HandleCreateAdmin creates an admin with a locally hashed password. The
// very first admin can be created without a session so a fresh install can
// bootstrap itself; after that a session is required.
// POST /api/admins
func (h *Handler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		h.logger.Error("admin listing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}
	if len(admins) > 0 && !h.hasSession(r) {
		metrics.RecordAuthFailure("no_session")
		WriteError(w, http.StatusUnauthorized, ErrCodeSessionRequired, "Login required")
		return
	}

	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || len(req.Password) < 8 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"username and a password of at least 8 characters are required")
		return
	}

	hash, err := storage.HashSecret(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	admin := &storage.Admin{
		Name:       req.Name,
		Username:   req.Username,
		Credential: storage.LocalCredential(hash),
	}
	if err := h.store.SaveAdmin(r.Context(), admin); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			WriteError(w, http.StatusConflict, ErrCodeInvalidRequest, "Username already registered")
			return
		}
		h.logger.Error("admin creation failed", "username", req.Username, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("admin created", "username", admin.Username)
	writeJSON(w, http.StatusCreated, AdminResponse{
		ID: admin.ID, Name: admin.Name, Username: admin.Username,
	})
}

// HandleListAdmins returns all admins without credentials.
// GET /api/admins
func (h *Handler) HandleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		h.logger.Error("admin listing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	out := make([]AdminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, AdminResponse{ID: a.ID, Name: a.Name, Username: a.Username})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteAdmin removes an admin.
// DELETE /api/admins/{id}
func (h *Handler) HandleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteAdmin(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No such admin")
			return
		}
		h.logger.Error("admin deletion failed", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// hasSession reports whether the request carries a valid session cookie,
// for handlers that gate on a session only conditionally.
func (h *Handler) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	_, ok := h.sessions.Get(r.Context(), cookie.Value)
	return ok
}
