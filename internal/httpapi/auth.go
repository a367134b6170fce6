package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
)

// LoginRequest is the request body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies admin credentials and starts a session.
// POST /api/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Username and password required")
		return
	}

	admin, err := h.portal.AuthenticateAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, portal.ErrInvalidLogin) {
			metrics.RecordAuthFailure("bad_password")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.logger.Error("admin login failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	session, err := h.sessions.Create(r.Context(), admin.Username)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("admin logged in", "username", admin.Username)
	writeJSON(w, http.StatusOK, map[string]string{"username": admin.Username})
}

// HandleLogout ends the current session.
// POST /api/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.sessions.Delete(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetLogLevelRequest is the request body for POST /api/loglevel.
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes the runtime log level.
// POST /api/loglevel
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	var level slog.Level
	switch req.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid level (must be: debug, info, warn, error)")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "new_level", req.Level)
	writeJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}

// IssueCodeRequest is the request body for PUT /api/approvers/code.
type IssueCodeRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueCodeResponse carries the freshly issued plaintext code. It is shown
// exactly once; only the hash is stored.
type IssueCodeResponse struct {
	Code         string `json:"code"`
	ValidityDays int    `json:"validity_days"`
}

// HandleIssueCode verifies approver credentials and mints a fresh approval
// code, invalidating the previous one.
// PUT /api/approvers/code
func (h *Handler) HandleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req IssueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Username and password required")
		return
	}

	code, days, err := h.portal.IssueApproverCode(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, portal.ErrInvalidLogin) {
			metrics.RecordAuthFailure("bad_password")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.logger.Error("code issuance failed", "username", req.Username, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, IssueCodeResponse{Code: code, ValidityDays: days})
}
