package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/directory"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/testutil/mockstore"
)

// fakeDirService serves canned group memberships.
type fakeDirService struct {
	members    map[string][]directory.Member
	groupErrs  map[string]error
	connectErr error
}

func (f *fakeDirService) Connect(ctx context.Context) (directory.Conn, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return &fakeDirConn{svc: f}, nil
}

func (f *fakeDirService) Authenticate(ctx context.Context, username, password string) error {
	return nil
}

type fakeDirConn struct {
	svc *fakeDirService
}

func (c *fakeDirConn) GroupMembers(ctx context.Context, group string) ([]directory.Member, error) {
	if err := c.svc.groupErrs[group]; err != nil {
		return nil, err
	}
	return c.svc.members[group], nil
}

func (c *fakeDirConn) Close() {}

func newTestSyncer(store *mockstore.MockStorage, dir directory.Service, groups Groups) *DirectorySyncer {
	return NewDirectorySyncer(store, dir, groups, CodePolicy{
		Size:               8,
		ValidityDays:       1,
		DefaultAccessClass: "guest",
	}, 0, nil)
}

func TestSyncCreatesApprover(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	dir := &fakeDirService{members: map[string][]directory.Member{
		"wifi-approvers": {{Username: "ada", Name: "Ada Lovelace", Email: "ada@example.com"}},
	}}

	s := newTestSyncer(store, dir, Groups{Approvers: []string{"wifi-approvers"}})
	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	got, err := store.GetApproverByUsername(context.Background(), "ada")
	if err != nil {
		t.Fatalf("expected approver to be created: %v", err)
	}
	if !got.Credential.DirectoryBacked() {
		t.Error("expected a directory-backed credential")
	}
	if got.CodeHash == "" {
		t.Error("expected a freshly issued code hash")
	}
	if got.Validity.IsZero() {
		t.Error("expected the code validity to be set")
	}
	if len(got.ApprovedTypes) != 1 || got.ApprovedTypes[0] != "guest" {
		t.Errorf("expected the default access class, got %v", got.ApprovedTypes)
	}
}

func TestSyncCreatesAdminAndUser(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	dir := &fakeDirService{members: map[string][]directory.Member{
		"wifi-admins": {{Username: "root", Name: "Root Operator"}},
		"wifi-users":  {{Username: "glopez", Name: "Gabriela Lopez", Email: "glopez@example.com"}},
	}}

	s := newTestSyncer(store, dir, Groups{
		Admins: []string{"wifi-admins"},
		Users:  []string{"wifi-users"},
	})
	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	admin, err := store.GetAdminByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("expected admin to be created: %v", err)
	}
	if admin.Name != "Root Operator" {
		t.Errorf("expected admin name to carry over, got %q", admin.Name)
	}

	user, err := store.GetUserByUsername(context.Background(), "glopez")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if user.Profile.FullName != "Gabriela Lopez" || user.Profile.Email != "glopez@example.com" {
		t.Errorf("expected the profile template to be filled, got %+v", user.Profile)
	}
}

func TestSyncDeletesUnaccounted(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	ctx := context.Background()

	if err := store.SaveApprover(ctx, &storage.Approver{
		Username:   "departed",
		Credential: storage.DirectoryCredential(),
	}); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	dir := &fakeDirService{members: map[string][]directory.Member{"wifi-approvers": nil}}
	s := newTestSyncer(store, dir, Groups{Approvers: []string{"wifi-approvers"}})
	if err := s.SyncOnce(ctx); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	if _, err := store.GetApproverByUsername(ctx, "departed"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected departed member to be deleted, got %v", err)
	}
}

func TestSyncKeepsPasswordRecords(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	ctx := context.Background()

	hash, err := storage.HashSecret("local-password")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if err := store.SaveApprover(ctx, &storage.Approver{
		Username:   "local-only",
		Credential: storage.LocalCredential(hash),
	}); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	dir := &fakeDirService{members: map[string][]directory.Member{"wifi-approvers": nil}}
	s := newTestSyncer(store, dir, Groups{Approvers: []string{"wifi-approvers"}})
	if err := s.SyncOnce(ctx); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	if _, err := store.GetApproverByUsername(ctx, "local-only"); err != nil {
		t.Errorf("expected password-backed record to be kept, got %v", err)
	}
}

func TestSyncExistingMemberUntouched(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	ctx := context.Background()

	if err := store.SaveApprover(ctx, &storage.Approver{
		Username:   "ada",
		Credential: storage.DirectoryCredential(),
		CodeHash:   "existing-hash",
		Validity:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	dir := &fakeDirService{members: map[string][]directory.Member{
		"wifi-approvers": {{Username: "ada", Name: "Ada Lovelace"}},
	}}
	s := newTestSyncer(store, dir, Groups{Approvers: []string{"wifi-approvers"}})
	if err := s.SyncOnce(ctx); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	got, err := store.GetApproverByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("expected record to survive: %v", err)
	}
	if got.CodeHash != "existing-hash" {
		t.Error("expected an existing member's code to be left alone")
	}
}

func TestSyncBindFailureAborts(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	ctx := context.Background()

	if err := store.SaveApprover(ctx, &storage.Approver{
		Username:   "departed",
		Credential: storage.DirectoryCredential(),
	}); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	dir := &fakeDirService{connectErr: errors.New("bind failed")}
	s := newTestSyncer(store, dir, Groups{Approvers: []string{"wifi-approvers"}})

	if err := s.SyncOnce(ctx); err == nil {
		t.Fatal("expected SyncOnce to fail when the bind fails")
	}
	if _, err := store.GetApproverByUsername(ctx, "departed"); err != nil {
		t.Errorf("expected no partial synchronization, got %v", err)
	}
}

func TestSyncGroupFailureSkipsDeletion(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	ctx := context.Background()

	// Member of the group that will fail to resolve.
	if err := store.SaveApprover(ctx, &storage.Approver{
		Username:   "member-of-broken",
		Credential: storage.DirectoryCredential(),
	}); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	dir := &fakeDirService{
		members:   map[string][]directory.Member{"ok-group": {{Username: "ada"}}},
		groupErrs: map[string]error{"broken-group": errors.New("resolution failed")},
	}
	s := newTestSyncer(store, dir, Groups{Approvers: []string{"ok-group", "broken-group"}})
	if err := s.SyncOnce(ctx); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	// The resolvable group's member is still created.
	if _, err := store.GetApproverByUsername(ctx, "ada"); err != nil {
		t.Errorf("expected member of the healthy group to be created, got %v", err)
	}
	// Nobody is deleted while the membership picture is incomplete.
	if _, err := store.GetApproverByUsername(ctx, "member-of-broken"); err != nil {
		t.Errorf("expected deletion to be skipped after a group failure, got %v", err)
	}
}

func TestSyncNilDirectoryIsNoop(t *testing.T) {
	t.Parallel()

	s := newTestSyncer(mockstore.New(), nil, Groups{})
	if err := s.SyncOnce(context.Background()); err != nil {
		t.Errorf("expected a nil directory to no-op, got %v", err)
	}
}
