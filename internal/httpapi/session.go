package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "portal_session"

// Session represents an authenticated operator session.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore manages operator sessions in memory. Sessions do not survive
// a restart; operators log in again.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a session store.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout == 0 {
		timeout = 24 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Create generates a new session for the given username.
func (s *SessionStore) Create(ctx context.Context, username string) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	id := hex.EncodeToString(b)

	now := time.Now()
	session := &Session{
		ID:        id,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by ID. Expired sessions are dropped on access.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(session.ExpiresAt) {
		s.Delete(ctx, id)
		return nil, false
	}

	return session, true
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Cleanup removes expired sessions. Call periodically.
func (s *SessionStore) Cleanup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

type sessionContextKey struct{}

// RequireSession rejects requests without a valid session cookie.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			metrics.RecordAuthFailure("no_session")
			WriteError(w, http.StatusUnauthorized, ErrCodeSessionRequired, "Login required")
			return
		}

		session, ok := h.sessions.Get(r.Context(), cookie.Value)
		if !ok {
			metrics.RecordAuthFailure("no_session")
			WriteError(w, http.StatusUnauthorized, ErrCodeSessionRequired, "Session expired")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFrom returns the session attached by RequireSession, or nil.
func SessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey{}).(*Session)
	return session
}
