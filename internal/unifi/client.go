package unifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// DefaultSessionTTL is how long a controller login is trusted before the
// client logs in again. Matches the controller's own session timeout with
// margin.
const DefaultSessionTTL = 10 * time.Minute

// Client holds the single authenticated session to the wireless controller.
// All commands are serialized through an internal mutex scoped to one
// controller call at a time, so a slow reconciliation pass never blocks an
// inbound request for longer than one command.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	sessionTTL time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	authedAt time.Time
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client must carry a cookie
// jar, as the controller session lives in a cookie.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithSessionTTL overrides the login time-to-live.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.sessionTTL = ttl
	}
}

// WithLogger sets the logger used for non-fatal command failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a controller client for the given base URL and
// credentials. No login happens until the first command.
func NewClient(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		sessionTTL: DefaultSessionTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		// Controllers ship with self-signed certificates; the cookie jar
		// carries the session.
		jar, _ := cookiejar.New(nil) //nolint:errcheck
		c.httpClient = &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		}
	}

	return c
}

// Authorize grants network access to a device for the given number of
// minutes. Calling it again for the same MAC is idempotent on the
// controller side.
func (c *Client) Authorize(ctx context.Context, site, mac string, minutes int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stationCmd(ctx, site, stationCommand{Cmd: cmdAuthorize, MAC: mac, Minutes: minutes})
}

// Unauthorize revokes a device's portal authorization.
func (c *Client) Unauthorize(ctx context.Context, site, mac string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stationCmd(ctx, site, stationCommand{Cmd: cmdUnauthorize, MAC: mac})
}

// Disconnect kicks a device off the network without touching its
// authorization entry.
func (c *Client) Disconnect(ctx context.Context, site, mac string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stationCmd(ctx, site, stationCommand{Cmd: cmdKick, MAC: mac})
}

// Rename sets the display name on the controller's record for a device.
func (c *Client) Rename(ctx context.Context, site, recordID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := fmt.Sprintf("%s/s/%s/upd/user/%s", c.baseURL, site, recordID)
	_, err := c.doAuthed(ctx, http.MethodPut, url, renameRequest{Name: name})
	return err
}

// ListDevices returns the controller's current view of connected devices
// for a site. When guestsOnly is set, only portal-originated sessions are
// returned.
func (c *Client) ListDevices(ctx context.Context, site string, guestsOnly bool) ([]Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := fmt.Sprintf("%s/s/%s/stat/guest", c.baseURL, site)
	body, err := c.doAuthed(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unifi: failed to decode device list: %w", err)
	}

	var devices []Device
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &devices); err != nil {
			return nil, fmt.Errorf("unifi: failed to decode device list: %w", err)
		}
	}

	if !guestsOnly {
		return devices, nil
	}

	guests := devices[:0]
	for _, d := range devices {
		if d.IsGuest {
			guests = append(guests, d)
		}
	}
	return guests, nil
}

// FindDevice looks up one device by MAC in the controller's listing for a
// site. Returns ErrDeviceNotFound when the controller does not list it.
func (c *Client) FindDevice(ctx context.Context, site, mac string) (*Device, error) {
	devices, err := c.ListDevices(ctx, site, false)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.MAC == mac {
			found := d
			return &found, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Connect authorizes the device behind a guest record and then renames the
// controller's entry after the guest when the controller has not yet
// assigned a name. A rename failure only affects display, not access, so it
// is logged and dropped.
func (c *Client) Connect(ctx context.Context, g *storage.Guest) error {
	if err := c.Authorize(ctx, g.Site, g.MAC, g.TimeConnection); err != nil {
		return err
	}

	device, err := c.FindDevice(ctx, g.Site, g.MAC)
	if err != nil {
		// The controller may not list the device yet; access is already
		// granted, so there is nothing to retry.
		if !errors.Is(err, ErrDeviceNotFound) {
			c.logger.Warn("device lookup after authorize failed",
				"site", g.Site, "mac", g.MAC, "error", err)
		}
		return nil
	}

	if device.Name != "" {
		return nil
	}
	name := fmt.Sprintf("%s (Guest)", g.FullName)
	if err := c.Rename(ctx, g.Site, device.RecordID, name); err != nil {
		c.logger.Warn("device rename failed",
			"site", g.Site, "mac", g.MAC, "error", err)
	}
	return nil
}

// stationCmd issues one station manager command. Callers must hold c.mu.
func (c *Client) stationCmd(ctx context.Context, site string, cmd stationCommand) error {
	url := fmt.Sprintf("%s/s/%s/cmd/stamgr", c.baseURL, site)
	_, err := c.doAuthed(ctx, http.MethodPost, url, cmd)
	if err != nil {
		metrics.RecordControllerCommand(cmd.Cmd, "error")
		return err
	}
	metrics.RecordControllerCommand(cmd.Cmd, "ok")
	return nil
}

// doAuthed runs one authenticated request. It logs in first when the cached
// session is older than the TTL, and retries exactly once after a fresh
// login when the controller answers 401. Callers must hold c.mu.
func (c *Client) doAuthed(ctx context.Context, method, url string, payload any) ([]byte, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	body, status, err := c.do(ctx, method, url, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// Session expired server-side; log in again and retry once.
		c.authedAt = time.Time{}
		if err := c.ensureAuthenticated(ctx); err != nil {
			return nil, err
		}
		body, status, err = c.do(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
	}

	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Endpoint: url}
	}

	return body, nil
}

// ensureAuthenticated performs the controller login exchange when the
// cached authentication timestamp is unset or older than the TTL. Callers
// must hold c.mu; duplicate logins from a stale cache are harmless, the
// controller treats them as idempotent.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if !c.authedAt.IsZero() && c.now().Sub(c.authedAt) < c.sessionTTL {
		return nil
	}

	body := loginRequest{Username: c.username, Password: c.password}
	_, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/login", body)
	if err != nil {
		return fmt.Errorf("unifi: login failed: %w", err)
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Endpoint: c.baseURL + "/login"}
	}

	c.authedAt = c.now()
	return nil
}

// do executes a single HTTP exchange and returns the body and status code.
// Transport errors are returned as errors; HTTP status handling is left to
// the caller.
func (c *Client) do(ctx context.Context, method, url string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("unifi: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}
