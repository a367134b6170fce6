// Package mockstore provides an in-memory implementation of
// storage.Storage for testing.
//
// MockStorage keeps real state, so lifecycle tests can read back what they
// wrote. Each method can also be overridden through its function field to
// inject failures; a nil field uses the in-memory behavior.
package mockstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// MockStorage is an in-memory storage.Storage.
type MockStorage struct {
	mu        sync.Mutex
	guests    map[string]*storage.Guest
	approvers map[string]*storage.Approver
	admins    map[string]*storage.Admin
	users     map[string]*storage.User

	// Failure injection hooks. A nil hook uses the in-memory behavior.
	ListGuestsFunc    func(ctx context.Context) ([]*storage.Guest, error)
	UpdateGuestFunc   func(ctx context.Context, g *storage.Guest) error
	DeleteGuestFunc   func(ctx context.Context, id string) error
	ListApproversFunc func(ctx context.Context) ([]*storage.Approver, error)
	SaveApproverFunc  func(ctx context.Context, a *storage.Approver) error
	PingFunc          func(ctx context.Context) error
}

// New creates an empty mock store.
func New() *MockStorage {
	return &MockStorage{
		guests:    make(map[string]*storage.Guest),
		approvers: make(map[string]*storage.Approver),
		admins:    make(map[string]*storage.Admin),
		users:     make(map[string]*storage.User),
	}
}

// ListGuests returns all guest records, newest first.
func (m *MockStorage) ListGuests(ctx context.Context) ([]*storage.Guest, error) {
	if m.ListGuestsFunc != nil {
		return m.ListGuestsFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*storage.Guest, 0, len(m.guests))
	for _, g := range m.guests {
		copied := *g
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

// GetGuest returns one guest record by ID.
func (m *MockStorage) GetGuest(ctx context.Context, id string) (*storage.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

// SaveGuest inserts a guest record, assigning an ID when missing.
func (m *MockStorage) SaveGuest(ctx context.Context, g *storage.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if _, ok := m.guests[g.ID]; ok {
		return storage.ErrDuplicate
	}
	copied := *g
	m.guests[g.ID] = &copied
	return nil
}

// UpdateGuest updates a guest record's mutable fields.
func (m *MockStorage) UpdateGuest(ctx context.Context, g *storage.Guest) error {
	if m.UpdateGuestFunc != nil {
		return m.UpdateGuestFunc(ctx, g)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.guests[g.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *g
	m.guests[g.ID] = &copied
	return nil
}

// DeleteGuest removes a guest record.
func (m *MockStorage) DeleteGuest(ctx context.Context, id string) error {
	if m.DeleteGuestFunc != nil {
		return m.DeleteGuestFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.guests[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.guests, id)
	return nil
}

// ListApprovers returns all approvers.
func (m *MockStorage) ListApprovers(ctx context.Context) ([]*storage.Approver, error) {
	if m.ListApproversFunc != nil {
		return m.ListApproversFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*storage.Approver, 0, len(m.approvers))
	for _, a := range m.approvers {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// GetApproverByUsername returns one approver by username.
func (m *MockStorage) GetApproverByUsername(ctx context.Context, username string) (*storage.Approver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.approvers {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

// SaveApprover inserts an approver.
func (m *MockStorage) SaveApprover(ctx context.Context, a *storage.Approver) error {
	if m.SaveApproverFunc != nil {
		return m.SaveApproverFunc(ctx, a)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	for _, existing := range m.approvers {
		if existing.Username == a.Username {
			return storage.ErrDuplicate
		}
	}
	copied := *a
	m.approvers[a.ID] = &copied
	return nil
}

// UpdateApprover updates an approver.
func (m *MockStorage) UpdateApprover(ctx context.Context, a *storage.Approver) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.approvers[a.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *a
	m.approvers[a.ID] = &copied
	return nil
}

// DeleteApprover removes an approver.
func (m *MockStorage) DeleteApprover(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.approvers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.approvers, id)
	return nil
}

// ListAdmins returns all admins.
func (m *MockStorage) ListAdmins(ctx context.Context) ([]*storage.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*storage.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// GetAdminByUsername returns one admin by username.
func (m *MockStorage) GetAdminByUsername(ctx context.Context, username string) (*storage.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

// SaveAdmin inserts an admin.
func (m *MockStorage) SaveAdmin(ctx context.Context, a *storage.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	for _, existing := range m.admins {
		if existing.Username == a.Username {
			return storage.ErrDuplicate
		}
	}
	copied := *a
	m.admins[a.ID] = &copied
	return nil
}

// DeleteAdmin removes an admin.
func (m *MockStorage) DeleteAdmin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.admins[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

// ListUsers returns all users.
func (m *MockStorage) ListUsers(ctx context.Context) ([]*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*storage.User, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// GetUserByUsername returns one user by username.
func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

// SaveUser inserts a user.
func (m *MockStorage) SaveUser(ctx context.Context, u *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return storage.ErrDuplicate
		}
	}
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

// DeleteUser removes a user.
func (m *MockStorage) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Ping reports the store as healthy.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *MockStorage) Close() error {
	return nil
}
