// Package unifi implements the authenticated session client for the
// wireless controller.
package unifi

import "encoding/json"

// Device is the controller's view of a connected client device. Optional
// fields are pointers so that an absent field can be told apart from a zero
// value; the reconciliation loop only copies fields the controller reported.
type Device struct {
	RecordID string  `json:"_id"`
	MAC      string  `json:"mac"`
	Name     string  `json:"name,omitempty"`
	Hostname *string `json:"hostname,omitempty"`
	IsGuest  bool    `json:"is_guest,omitempty"`

	// Expired is the controller's authorization flag. Controllers omit the
	// field once the authorization entry has been purged, so an absent flag
	// is treated as expired by Device.IsExpired.
	Expired *bool `json:"expired,omitempty"`

	RxBytes *int64 `json:"rx_bytes,omitempty"`
	TxBytes *int64 `json:"tx_bytes,omitempty"`
}

// IsExpired reports whether the controller no longer considers the device's
// authorization active. An absent flag counts as expired.
func (d *Device) IsExpired() bool {
	return d.Expired == nil || *d.Expired
}

// apiEnvelope is the controller's standard response wrapper.
type apiEnvelope struct {
	Meta json.RawMessage `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// stationCommand is the request body for the per-site station manager
// endpoint. Minutes is only set for authorize commands.
type stationCommand struct {
	Cmd     string `json:"cmd"`
	MAC     string `json:"mac"`
	Minutes int    `json:"minutes,omitempty"`
}

// Station manager commands.
const (
	cmdAuthorize   = "authorize-guest"
	cmdUnauthorize = "unauthorize-guest"
	cmdKick        = "kick-sta"
)

// loginRequest is the body of the controller login exchange.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// renameRequest is the body of the per-device rename endpoint.
type renameRequest struct {
	Name string `json:"name"`
}
