package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/testutil/mockstore"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/unifi"
)

// fakeLister serves canned device listings per site.
type fakeLister struct {
	devices map[string][]unifi.Device
	errs    map[string]error
}

func (f *fakeLister) ListDevices(ctx context.Context, site string, guestsOnly bool) ([]unifi.Device, error) {
	if err := f.errs[site]; err != nil {
		return nil, err
	}
	return f.devices[site], nil
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

func addGuest(t *testing.T, store *mockstore.MockStorage, mac, site string,
	status storage.GuestStatus, start time.Time) *storage.Guest {
	t.Helper()

	g := &storage.Guest{
		FullName:  "Test Guest",
		MAC:       mac,
		Site:      site,
		Status:    status,
		Approver:  "default",
		StartTime: start,
	}
	if err := store.SaveGuest(context.Background(), g); err != nil {
		t.Fatalf("SaveGuest failed: %v", err)
	}
	return g
}

func TestReconcileExpiresGuest(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	guest := addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusApproved, time.Now())

	lister := &fakeLister{devices: map[string][]unifi.Device{
		"default": {{MAC: "aa:bb:cc:dd:ee:ff", Expired: boolPtr(true)}},
	}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	got, err := store.GetGuest(context.Background(), guest.ID)
	if err != nil {
		t.Fatalf("GetGuest failed: %v", err)
	}
	if got.Status != storage.StatusExpired {
		t.Errorf("expected Expired, got %q", got.Status)
	}
}

func TestReconcileMissingExpiredFlagCountsAsExpired(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	guest := addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusApproved, time.Now())

	lister := &fakeLister{devices: map[string][]unifi.Device{
		"default": {{MAC: "aa:bb:cc:dd:ee:ff"}},
	}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	got, _ := store.GetGuest(context.Background(), guest.ID)
	if got.Status != storage.StatusExpired {
		t.Errorf("expected a device without an expired flag to expire the record, got %q", got.Status)
	}
}

func TestReconcileCopiesControllerFields(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	guest := addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusApproved, time.Now())

	lister := &fakeLister{devices: map[string][]unifi.Device{
		"default": {{
			MAC:      "aa:bb:cc:dd:ee:ff",
			Expired:  boolPtr(false),
			Hostname: strPtr("adas-laptop"),
			RxBytes:  int64Ptr(1024),
			TxBytes:  int64Ptr(2048),
		}},
	}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	got, _ := store.GetGuest(context.Background(), guest.ID)
	if got.Status != storage.StatusApproved {
		t.Errorf("expected status to stay Approved, got %q", got.Status)
	}
	if got.Hostname != "adas-laptop" || got.RxBytes != 1024 || got.TxBytes != 2048 {
		t.Errorf("expected controller fields copied, got %q/%d/%d",
			got.Hostname, got.RxBytes, got.TxBytes)
	}
}

func TestReconcileSkipsNonApproved(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	pending := addGuest(t, store, "aa:bb:cc:dd:ee:01", "default", storage.StatusPending, time.Now())
	rejected := addGuest(t, store, "aa:bb:cc:dd:ee:02", "default", storage.StatusRejected, time.Now())

	lister := &fakeLister{devices: map[string][]unifi.Device{
		"default": {
			{MAC: "aa:bb:cc:dd:ee:01", Expired: boolPtr(true)},
			{MAC: "aa:bb:cc:dd:ee:02", Expired: boolPtr(true)},
		},
	}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	gotPending, _ := store.GetGuest(context.Background(), pending.ID)
	if gotPending.Status != storage.StatusPending {
		t.Errorf("expected pending record untouched, got %q", gotPending.Status)
	}
	gotRejected, _ := store.GetGuest(context.Background(), rejected.ID)
	if gotRejected.Status != storage.StatusRejected {
		t.Errorf("expected rejected record untouched, got %q", gotRejected.Status)
	}
}

func TestReconcileDeviceAbsent(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	guest := addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusApproved, time.Now())

	lister := &fakeLister{devices: map[string][]unifi.Device{"default": nil}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	got, _ := store.GetGuest(context.Background(), guest.ID)
	if got.Status != storage.StatusApproved {
		t.Errorf("expected an unlisted device to keep its record, got %q", got.Status)
	}
}

func TestReconcileSiteFailureIsolated(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	addGuest(t, store, "aa:bb:cc:dd:ee:01", "broken", storage.StatusApproved, time.Now())
	healthy := addGuest(t, store, "aa:bb:cc:dd:ee:02", "healthy", storage.StatusApproved, time.Now())

	lister := &fakeLister{
		devices: map[string][]unifi.Device{
			"healthy": {{MAC: "aa:bb:cc:dd:ee:02", Expired: boolPtr(true)}},
		},
		errs: map[string]error{"broken": errors.New("controller unreachable")},
	}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("expected per-site failures to be isolated, got %v", err)
	}

	got, _ := store.GetGuest(context.Background(), healthy.ID)
	if got.Status != storage.StatusExpired {
		t.Errorf("expected the healthy site to be reconciled, got %q", got.Status)
	}
}

func TestReconcileListFailureAborts(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	store.ListGuestsFunc = func(ctx context.Context) ([]*storage.Guest, error) {
		return nil, errors.New("database down")
	}

	r := NewGuestReconciler(store, &fakeLister{}, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err == nil {
		t.Error("expected ReconcileOnce to fail when the record set cannot be loaded")
	}
}

func TestReconcilePersistFailureIsolated(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusApproved, time.Now())
	store.UpdateGuestFunc = func(ctx context.Context, g *storage.Guest) error {
		return errors.New("database down")
	}

	lister := &fakeLister{devices: map[string][]unifi.Device{
		"default": {{MAC: "aa:bb:cc:dd:ee:ff", Expired: boolPtr(true)}},
	}}

	r := NewGuestReconciler(store, lister, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Errorf("expected per-record persistence failures to be isolated, got %v", err)
	}
}

func TestDeleteAged(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	now := time.Now()
	aged := addGuest(t, store, "aa:bb:cc:dd:ee:01", "default", storage.StatusRejected,
		now.Add(-48*time.Hour))
	recent := addGuest(t, store, "aa:bb:cc:dd:ee:02", "default", storage.StatusApproved,
		now.Add(-time.Hour))

	lister := &fakeLister{}
	r := NewGuestReconciler(store, lister, 24*time.Hour, 0, nil)
	r.now = func() time.Time { return now }

	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	if _, err := store.GetGuest(context.Background(), aged.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected aged record to be deleted, got %v", err)
	}
	if _, err := store.GetGuest(context.Background(), recent.ID); err != nil {
		t.Errorf("expected recent record to survive, got %v", err)
	}
}

func TestDeleteAgedDisabled(t *testing.T) {
	t.Parallel()

	store := mockstore.New()
	old := addGuest(t, store, "aa:bb:cc:dd:ee:ff", "default", storage.StatusExpired,
		time.Now().Add(-365*24*time.Hour))

	r := NewGuestReconciler(store, &fakeLister{}, 0, 0, nil)
	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}

	if _, err := store.GetGuest(context.Background(), old.ID); err != nil {
		t.Errorf("expected cleanup to be disabled with zero max age, got %v", err)
	}
}
