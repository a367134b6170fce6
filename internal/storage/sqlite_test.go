package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	s := NewSQLiteStorage(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetGuest(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	guest := &Guest{
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		Phone:          "11987654321",
		Fields:         map[string]string{"company": "Analytical Engines"},
		MAC:            "aa:bb:cc:dd:ee:ff",
		Site:           "default",
		Status:         StatusPending,
		Approver:       "default",
		TimeConnection: 480,
		StartTime:      start,
	}

	if err := s.SaveGuest(ctx, guest); err != nil {
		t.Fatalf("SaveGuest failed: %v", err)
	}
	if guest.ID == "" {
		t.Fatal("expected SaveGuest to assign an ID")
	}

	got, err := s.GetGuest(ctx, guest.ID)
	if err != nil {
		t.Fatalf("GetGuest failed: %v", err)
	}

	if got.FullName != guest.FullName {
		t.Errorf("expected full name %q, got %q", guest.FullName, got.FullName)
	}
	if got.Status != StatusPending {
		t.Errorf("expected status %q, got %q", StatusPending, got.Status)
	}
	if got.TimeConnection != 480 {
		t.Errorf("expected time_connection 480, got %d", got.TimeConnection)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("expected start time %v, got %v", start, got.StartTime)
	}
	if got.Fields["company"] != "Analytical Engines" {
		t.Errorf("expected fields to round-trip, got %v", got.Fields)
	}
	if got.Hostname != "" || got.RxBytes != 0 || got.TxBytes != 0 {
		t.Errorf("expected controller-owned fields unset, got %q/%d/%d",
			got.Hostname, got.RxBytes, got.TxBytes)
	}
}

func TestGetGuestNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	_, err := s.GetGuest(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateGuest(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	guest := &Guest{
		FullName:  "Grace Hopper",
		MAC:       "11:22:33:44:55:66",
		Site:      "default",
		Status:    StatusPending,
		Approver:  "default",
		StartTime: time.Now().UTC(),
	}
	if err := s.SaveGuest(ctx, guest); err != nil {
		t.Fatalf("SaveGuest failed: %v", err)
	}

	guest.Status = StatusApproved
	guest.Approver = "frontdesk"
	guest.Hostname = "graces-laptop"
	guest.RxBytes = 1024
	guest.TxBytes = 2048
	if err := s.UpdateGuest(ctx, guest); err != nil {
		t.Fatalf("UpdateGuest failed: %v", err)
	}

	got, err := s.GetGuest(ctx, guest.ID)
	if err != nil {
		t.Fatalf("GetGuest failed: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected status %q, got %q", StatusApproved, got.Status)
	}
	if got.Approver != "frontdesk" {
		t.Errorf("expected approver frontdesk, got %q", got.Approver)
	}
	if got.Hostname != "graces-laptop" || got.RxBytes != 1024 || got.TxBytes != 2048 {
		t.Errorf("expected controller fields to persist, got %q/%d/%d",
			got.Hostname, got.RxBytes, got.TxBytes)
	}
}

func TestUpdateGuestNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	err := s.UpdateGuest(context.Background(), &Guest{ID: "no-such-id", Status: StatusApproved})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteGuest(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	guest := &Guest{FullName: "x", MAC: "aa:aa:aa:aa:aa:aa", Site: "default",
		Status: StatusPending, Approver: "default", StartTime: time.Now()}
	if err := s.SaveGuest(ctx, guest); err != nil {
		t.Fatalf("SaveGuest failed: %v", err)
	}

	if err := s.DeleteGuest(ctx, guest.ID); err != nil {
		t.Fatalf("DeleteGuest failed: %v", err)
	}
	if _, err := s.GetGuest(ctx, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteGuest(ctx, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListGuestsNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	old := &Guest{FullName: "old", MAC: "aa:aa:aa:aa:aa:01", Site: "default",
		Status: StatusPending, Approver: "default",
		StartTime: time.Now().Add(-2 * time.Hour)}
	recent := &Guest{FullName: "recent", MAC: "aa:aa:aa:aa:aa:02", Site: "default",
		Status: StatusPending, Approver: "default", StartTime: time.Now()}

	for _, g := range []*Guest{old, recent} {
		if err := s.SaveGuest(ctx, g); err != nil {
			t.Fatalf("SaveGuest failed: %v", err)
		}
	}

	guests, err := s.ListGuests(ctx)
	if err != nil {
		t.Fatalf("ListGuests failed: %v", err)
	}
	if len(guests) != 2 {
		t.Fatalf("expected 2 guests, got %d", len(guests))
	}
	if guests[0].FullName != "recent" {
		t.Errorf("expected newest record first, got %q", guests[0].FullName)
	}
}

func TestSaveApproverDuplicateUsername(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	first := &Approver{Username: "frontdesk", Credential: DirectoryCredential()}
	if err := s.SaveApprover(ctx, first); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	second := &Approver{Username: "frontdesk", Credential: DirectoryCredential()}
	if err := s.SaveApprover(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestApproverRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	validity := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	approver := &Approver{
		Username:      "frontdesk",
		Email:         "frontdesk@example.com",
		Credential:    LocalCredential(hash),
		CodeHash:      "code-hash",
		ApprovedTypes: []string{"guest", "contractor"},
		Validity:      validity,
	}
	if err := s.SaveApprover(ctx, approver); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	got, err := s.GetApproverByUsername(ctx, "frontdesk")
	if err != nil {
		t.Fatalf("GetApproverByUsername failed: %v", err)
	}
	if got.Credential.DirectoryBacked() {
		t.Error("expected local credential, got directory-backed")
	}
	if got.Credential.Hash() != hash {
		t.Error("expected password hash to round-trip")
	}
	if len(got.ApprovedTypes) != 2 || got.ApprovedTypes[0] != "guest" {
		t.Errorf("expected approved types to round-trip, got %v", got.ApprovedTypes)
	}
	if !got.Validity.Equal(validity) {
		t.Errorf("expected validity %v, got %v", validity, got.Validity)
	}
}

func TestApproverZeroValidityStaysZero(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	approver := &Approver{Username: "permanent", Credential: DirectoryCredential()}
	if err := s.SaveApprover(ctx, approver); err != nil {
		t.Fatalf("SaveApprover failed: %v", err)
	}

	got, err := s.GetApproverByUsername(ctx, "permanent")
	if err != nil {
		t.Fatalf("GetApproverByUsername failed: %v", err)
	}
	if !got.Validity.IsZero() {
		t.Errorf("expected zero validity, got %v", got.Validity)
	}
	if !got.Credential.DirectoryBacked() {
		t.Error("expected directory-backed credential")
	}
}

func TestUserProfileRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	user := &User{
		Username:   "alovelace",
		Email:      "ada@example.com",
		Credential: DirectoryCredential(),
		Profile: Guest{
			FullName: "Ada Lovelace",
			Email:    "ada@example.com",
		},
	}
	if err := s.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}

	got, err := s.GetUserByUsername(ctx, "alovelace")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.Profile.FullName != "Ada Lovelace" {
		t.Errorf("expected profile to round-trip, got %v", got.Profile)
	}
}

func TestAdminCRUD(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	hash, err := HashSecret("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	admin := &Admin{Name: "Root", Username: "root", Credential: LocalCredential(hash)}
	if err := s.SaveAdmin(ctx, admin); err != nil {
		t.Fatalf("SaveAdmin failed: %v", err)
	}

	got, err := s.GetAdminByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetAdminByUsername failed: %v", err)
	}
	if err := VerifySecret("hunter2hunter2", got.Credential.Hash()); err != nil {
		t.Errorf("expected password to verify, got %v", err)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins failed: %v", err)
	}
	if len(admins) != 1 {
		t.Fatalf("expected 1 admin, got %d", len(admins))
	}

	if err := s.DeleteAdmin(ctx, got.ID); err != nil {
		t.Fatalf("DeleteAdmin failed: %v", err)
	}
	if _, err := s.GetAdminByUsername(ctx, "root"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
