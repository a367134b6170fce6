package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// UserLoginRequest is the request body for POST /api/user/login. MAC and
// site may be omitted when the redirect capture already stashed them in
// cookies.
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	MAC      string `json:"mac,omitempty"`
	Site     string `json:"site,omitempty"`
}

// HandleUserLogin authenticates a registered user and connects the device
// they are on, applying the guest profile stored on their record.
// POST /api/user/login
func (h *Handler) HandleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req UserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Username and password required")
		return
	}

	mac, site := req.MAC, req.Site
	if mac == "" || site == "" {
		cookieMAC, cookieSite := deviceFromCookies(r)
		if mac == "" {
			mac = cookieMAC
		}
		if site == "" {
			site = cookieSite
		}
	}
	if !portal.ValidMAC(mac) {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "mac must be a colon-separated MAC address")
		return
	}
	if site == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "site is required")
		return
	}

	guest, err := h.portal.UserConnect(r.Context(), req.Username, req.Password, mac, site)
	if err != nil {
		if errors.Is(err, portal.ErrInvalidLogin) {
			metrics.RecordAuthFailure("bad_password")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.logger.Error("user connect failed", "username", req.Username, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, ConnectResponse{ID: guest.ID, Status: guest.Status})
}

// UserRequest is the request body for POST /api/users. An empty password
// makes the user directory-backed.
type UserRequest struct {
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Password string         `json:"password,omitempty"`
	Profile  ProfileRequest `json:"profile"`
}

// ProfileRequest is the guest template applied on a user's self-connect.
type ProfileRequest struct {
	FullName       string            `json:"full_name,omitempty"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Site           string            `json:"site,omitempty"`
	TimeConnection int               `json:"time_connection,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
}

// UserResponse represents a user in API responses, without credentials.
type UserResponse struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email,omitempty"`
	Profile  ProfileRequest `json:"profile"`
}

func userResponse(u *storage.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Profile: ProfileRequest{
			FullName:       u.Profile.FullName,
			Email:          u.Profile.Email,
			Phone:          u.Profile.Phone,
			Site:           u.Profile.Site,
			TimeConnection: u.Profile.TimeConnection,
			Fields:         u.Profile.Fields,
		},
	}
}

// HandleCreateUser registers a self-service user.
// POST /api/users
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username is required")
		return
	}

	cred := storage.DirectoryCredential()
	if req.Password != "" {
		hash, err := storage.HashSecret(req.Password)
		if err != nil {
			h.logger.Error("password hashing failed", "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
			return
		}
		cred = storage.LocalCredential(hash)
	}

	user := &storage.User{
		Username:   req.Username,
		Email:      req.Email,
		Credential: cred,
		Profile: storage.Guest{
			FullName:       req.Profile.FullName,
			Email:          req.Profile.Email,
			Phone:          req.Profile.Phone,
			Site:           req.Profile.Site,
			TimeConnection: req.Profile.TimeConnection,
			Fields:         req.Profile.Fields,
		},
	}
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			WriteError(w, http.StatusConflict, ErrCodeInvalidRequest, "Username already registered")
			return
		}
		h.logger.Error("user creation failed", "username", req.Username, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("user created", "username", user.Username)
	writeJSON(w, http.StatusCreated, userResponse(user))
}

// HandleListUsers returns all users without credentials.
// GET /api/users
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("user listing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteUser removes a user.
// DELETE /api/users/{id}
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No such user")
			return
		}
		h.logger.Error("user deletion failed", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
