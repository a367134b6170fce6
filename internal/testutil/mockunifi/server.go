// Package mockunifi provides a mock wireless controller API server for
// testing.
package mockunifi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
)

// Device is the controller's wire representation of a connected station.
type Device struct {
	RecordID string  `json:"_id"`
	MAC      string  `json:"mac"`
	Name     string  `json:"name"`
	Hostname *string `json:"hostname,omitempty"`
	IsGuest  bool    `json:"is_guest"`
	Expired  *bool   `json:"expired,omitempty"`
	RxBytes  *int64  `json:"rx_bytes,omitempty"`
	TxBytes  *int64  `json:"tx_bytes,omitempty"`
}

type stationCommand struct {
	Cmd     string `json:"cmd"`
	MAC     string `json:"mac"`
	Minutes int    `json:"minutes,omitempty"`
}

// Server is a mock controller for testing. It tracks logins, authorized
// stations and renames, and can be told to demand a valid session so TTL
// and re-login behavior is observable.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	devices     map[string]map[string]*Device // site -> mac -> device
	authorized  map[string]map[string]int     // site -> mac -> minutes
	kicked      map[string]int                // mac -> kick count
	loginCount  int
	failLogin   bool
	requireAuth bool
	session     string
}

// New creates a mock controller server.
func New() *Server {
	s := &Server{
		devices:    make(map[string]map[string]*Device),
		authorized: make(map[string]map[string]int),
		kicked:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /s/{site}/cmd/stamgr", s.handleStationCmd)
	mux.HandleFunc("GET /s/{site}/stat/guest", s.handleListGuests)
	mux.HandleFunc("PUT /s/{site}/upd/user/{id}", s.handleRename)

	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loginCount++
	if s.failLogin {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.session = uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "unifises", Value: s.session, Path: "/"})
	writeEnvelope(w, nil)
}

// authenticated reports whether the request carries the current session.
// Callers must hold s.mu.
func (s *Server) authenticated(r *http.Request) bool {
	if !s.requireAuth {
		return true
	}
	cookie, err := r.Cookie("unifises")
	return err == nil && s.session != "" && cookie.Value == s.session
}

func (s *Server) handleStationCmd(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var cmd stationCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	site := r.PathValue("site")
	switch cmd.Cmd {
	case "authorize-guest":
		if s.authorized[site] == nil {
			s.authorized[site] = make(map[string]int)
		}
		s.authorized[site][cmd.MAC] = cmd.Minutes
	case "unauthorize-guest":
		delete(s.authorized[site], cmd.MAC)
	case "kick-sta":
		s.kicked[cmd.MAC]++
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	writeEnvelope(w, nil)
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	site := r.PathValue("site")
	devices := make([]Device, 0, len(s.devices[site]))
	for _, d := range s.devices[site] {
		devices = append(devices, *d)
	}
	writeEnvelope(w, devices)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	site := r.PathValue("site")
	id := r.PathValue("id")
	for _, d := range s.devices[site] {
		if d.RecordID == id {
			d.Name = body.Name
			writeEnvelope(w, nil)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func writeEnvelope(w http.ResponseWriter, data any) {
	if data == nil {
		data = []any{}
	}
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]any{
		"meta": map[string]string{"rc": "ok"},
		"data": data,
	})
}

// AddDevice registers a device in a site's listing. A missing RecordID is
// filled in.
func (s *Server) AddDevice(site string, d Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.RecordID == "" {
		d.RecordID = uuid.New().String()
	}
	if s.devices[site] == nil {
		s.devices[site] = make(map[string]*Device)
	}
	s.devices[site][d.MAC] = &d
}

// Device returns the server's current record for a device.
func (s *Server) Device(site, mac string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[site][mac]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// SetExpired flips the expired flag on a registered device.
func (s *Server) SetExpired(site, mac string, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.devices[site][mac]; ok {
		d.Expired = &expired
	}
}

// AuthorizedMinutes reports whether a device is authorized and for how
// long.
func (s *Server) AuthorizedMinutes(site, mac string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	minutes, ok := s.authorized[site][mac]
	return minutes, ok
}

// KickCount returns how many kick commands a device received.
func (s *Server) KickCount(mac string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kicked[mac]
}

// LoginCount returns how many login exchanges the server has seen.
func (s *Server) LoginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCount
}

// RequireAuth makes the command endpoints demand the current session
// cookie and answer 401 otherwise.
func (s *Server) RequireAuth(require bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = require
}

// InvalidateSessions revokes the current session, forcing the next
// authenticated request to fail until a fresh login.
func (s *Server) InvalidateSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = ""
}

// FailLogin makes the login endpoint answer 401.
func (s *Server) FailLogin(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogin = fail
}
