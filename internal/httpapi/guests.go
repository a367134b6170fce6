package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// ConnectRequest is the request body for POST /api/connect.
type ConnectRequest struct {
	FullName       string            `json:"full_name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	MAC            string            `json:"mac"`
	Site           string            `json:"site"`
	TimeConnection int               `json:"time_connection"`
	Fields         map[string]string `json:"fields,omitempty"`

	// Code is an optional approval code; with a valid one the device is
	// authorized immediately instead of waiting for approval.
	Code string `json:"code,omitempty"`
}

// ConnectResponse reports the record created for a connection request.
type ConnectResponse struct {
	ID     string              `json:"id"`
	Status storage.GuestStatus `json:"status"`
}

// HandleConnect records a guest connection request from the captive portal.
// POST /api/connect
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	if msg := validateConnect(&req); msg != "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, msg)
		return
	}

	guest := &storage.Guest{
		FullName:       req.FullName,
		Email:          req.Email,
		Phone:          req.Phone,
		MAC:            req.MAC,
		Site:           req.Site,
		TimeConnection: req.TimeConnection,
		Fields:         req.Fields,
	}

	status, err := h.portal.RequestAccess(r.Context(), guest, req.Code)
	if err != nil {
		if errors.Is(err, portal.ErrCodeNotFound) {
			metrics.RecordAuthFailure("bad_code")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid or expired code")
			return
		}
		h.logger.Error("connection request failed", "mac", req.MAC, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, ConnectResponse{ID: guest.ID, Status: status})
}

func validateConnect(req *ConnectRequest) string {
	if req.FullName == "" {
		return "full_name is required"
	}
	if req.Site == "" {
		return "site is required"
	}
	if !portal.ValidMAC(req.MAC) {
		return "mac must be a colon-separated MAC address"
	}
	if req.Email != "" && !portal.ValidEmail(req.Email) {
		return "email is not a valid address"
	}
	if req.Phone != "" && !portal.ValidPhone(req.Phone) {
		return "phone must be 11 digits"
	}
	return ""
}

// HandleStatus returns the lifecycle status of the most recent record for a
// device.
// GET /api/status/{mac}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	if !portal.ValidMAC(mac) {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "mac must be a colon-separated MAC address")
		return
	}

	status, err := h.portal.StatusByMAC(r.Context(), mac)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No record for device")
			return
		}
		h.logger.Error("status lookup failed", "mac", mac, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]storage.GuestStatus{"status": status})
}

// GuestResponse represents a guest record in API responses.
type GuestResponse struct {
	ID             string              `json:"id"`
	FullName       string              `json:"full_name"`
	Email          string              `json:"email,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Fields         map[string]string   `json:"fields,omitempty"`
	MAC            string              `json:"mac"`
	Site           string              `json:"site"`
	Status         storage.GuestStatus `json:"status"`
	Approver       string              `json:"approver"`
	TimeConnection int                 `json:"time_connection"`
	StartTime      string              `json:"start_time"`
	Hostname       string              `json:"hostname,omitempty"`
	RxBytes        int64               `json:"rx_bytes,omitempty"`
	TxBytes        int64               `json:"tx_bytes,omitempty"`
}

func guestResponse(g *storage.Guest) GuestResponse {
	return GuestResponse{
		ID:             g.ID,
		FullName:       g.FullName,
		Email:          g.Email,
		Phone:          g.Phone,
		Fields:         g.Fields,
		MAC:            g.MAC,
		Site:           g.Site,
		Status:         g.Status,
		Approver:       g.Approver,
		TimeConnection: g.TimeConnection,
		StartTime:      g.StartTime.UTC().Format(time.RFC3339),
		Hostname:       g.Hostname,
		RxBytes:        g.RxBytes,
		TxBytes:        g.TxBytes,
	}
}

// HandleListGuests returns all guest records, newest first.
// GET /api/guests
func (h *Handler) HandleListGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.store.ListGuests(r.Context())
	if err != nil {
		h.logger.Error("failed to list guests", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	response := make([]GuestResponse, len(guests))
	for i, g := range guests {
		response[i] = guestResponse(g)
	}
	writeJSON(w, http.StatusOK, response)
}

// ApproveRequest is the optional request body for approve.
type ApproveRequest struct {
	Minutes int `json:"minutes"`
}

// HandleApprove approves a pending request and authorizes the device.
// POST /api/guests/{id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
			return
		}
	}

	session := SessionFrom(r.Context())
	err := h.portal.Approve(r.Context(), id, session.Username, req.Minutes)
	if err != nil {
		h.writeLifecycleError(w, id, "approve", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReject rejects a pending request.
// POST /api/guests/{id}/reject
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session := SessionFrom(r.Context())
	if err := h.portal.Reject(r.Context(), id, session.Username); err != nil {
		h.writeLifecycleError(w, id, "reject", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDirectConnect creates an already-approved record and authorizes the
// device, for operator-driven connects.
// POST /api/guests/connect
func (h *Handler) HandleDirectConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if msg := validateConnect(&req); msg != "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, msg)
		return
	}

	guest := &storage.Guest{
		FullName:       req.FullName,
		Email:          req.Email,
		Phone:          req.Phone,
		MAC:            req.MAC,
		Site:           req.Site,
		TimeConnection: req.TimeConnection,
		Fields:         req.Fields,
	}

	session := SessionFrom(r.Context())
	if err := h.portal.DirectConnect(r.Context(), guest, session.Username); err != nil {
		h.logger.Error("direct connect failed", "mac", req.MAC, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, ConnectResponse{ID: guest.ID, Status: guest.Status})
}

// HandleDisconnect kicks the device behind a record off the network.
// POST /api/guests/{id}/disconnect
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.portal.Disconnect(r.Context(), id); err != nil {
		h.writeLifecycleError(w, id, "disconnect", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDeleteGuest removes a guest record.
// DELETE /api/guests/{id}
func (h *Handler) HandleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteGuest(r.Context(), id); err != nil {
		h.writeLifecycleError(w, id, "delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, id, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No such record")
	case errors.Is(err, portal.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, ErrCodeInvalidTransition, "Record is not pending")
	default:
		h.logger.Error("guest operation failed", "op", op, "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
	}
}
