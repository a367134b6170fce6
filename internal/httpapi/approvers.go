package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// ApproverRequest is the request body for POST /api/approvers. An empty
// password makes the approver directory-backed.
type ApproverRequest struct {
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Password      string   `json:"password,omitempty"`
	Code          string   `json:"code,omitempty"`
	ApprovedTypes []string `json:"approved_types,omitempty"`
}

// ApproverUpdateRequest is the request body for PUT /api/approvers/{id}.
// Absent fields are left untouched.
type ApproverUpdateRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Code     *string `json:"code,omitempty"`
}

// ApproverResponse represents an approver in API responses. Hashes are
// never included.
type ApproverResponse struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email,omitempty"`
	ApprovedTypes []string `json:"approved_types,omitempty"`
	Validity      string   `json:"validity,omitempty"`
}

func approverResponse(a *storage.Approver) ApproverResponse {
	resp := ApproverResponse{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		ApprovedTypes: a.ApprovedTypes,
	}
	if !a.Validity.IsZero() {
		resp.Validity = a.Validity.UTC().Format(time.RFC3339)
	}
	return resp
}

// HandleCreateApprover registers an approver.
// POST /api/approvers
func (h *Handler) HandleCreateApprover(w http.ResponseWriter, r *http.Request) {
	var req ApproverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Username == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username is required")
		return
	}

	a, err := h.portal.CreateApprover(r.Context(), req.Username, req.Email,
		req.Password, req.Code, req.ApprovedTypes)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			WriteError(w, http.StatusConflict, ErrCodeInvalidRequest, "Username already registered")
			return
		}
		h.logger.Error("approver creation failed", "username", req.Username, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, approverResponse(a))
}

// HandleListApprovers returns all approvers without their hashes.
// GET /api/approvers
func (h *Handler) HandleListApprovers(w http.ResponseWriter, r *http.Request) {
	approvers, err := h.store.ListApprovers(r.Context())
	if err != nil {
		h.logger.Error("approver listing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	out := make([]ApproverResponse, 0, len(approvers))
	for _, a := range approvers {
		out = append(out, approverResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleUpdateApprover changes an approver's email, password or code.
// PUT /api/approvers/{id}
func (h *Handler) HandleUpdateApprover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproverUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	if err := h.portal.UpdateApprover(r.Context(), id, req.Email, req.Password, req.Code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No such approver")
			return
		}
		h.logger.Error("approver update failed", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDeleteApprover removes an approver.
// DELETE /api/approvers/{id}
func (h *Handler) HandleDeleteApprover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteApprover(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No such approver")
			return
		}
		h.logger.Error("approver deletion failed", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
