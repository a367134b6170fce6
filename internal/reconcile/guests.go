// Package reconcile contains the two periodic loops that keep local state
// consistent with the wireless controller and the directory service.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/unifi"
)

// DefaultGuestInterval is the tick interval of the guest reconciliation
// loop.
const DefaultGuestInterval = 60 * time.Second

// DeviceLister is the controller capability the guest loop needs.
type DeviceLister interface {
	ListDevices(ctx context.Context, site string, guestsOnly bool) ([]unifi.Device, error)
}

// GuestReconciler aligns guest records with the controller's view of
// connected devices: it expires records the controller no longer considers
// authorized, copies forward controller-owned fields, and hard-deletes
// records past the configured maximum age.
type GuestReconciler struct {
	store    storage.Storage
	devices  DeviceLister
	maxAge   time.Duration // zero disables age-based cleanup
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewGuestReconciler creates the guest loop. A zero interval uses
// DefaultGuestInterval; a zero maxAge disables the expiry-cleanup policy.
func NewGuestReconciler(store storage.Storage, devices DeviceLister, maxAge time.Duration,
	interval time.Duration, logger *slog.Logger) *GuestReconciler {
	if interval <= 0 {
		interval = DefaultGuestInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GuestReconciler{
		store:    store,
		devices:  devices,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the loop until the context is cancelled. Each tick is
// isolated: a failing tick is logged and the next tick retries.
func (r *GuestReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Error("guest reconciliation tick failed", "error", err)
				metrics.RecordReconcileTick("guests", "error")
			} else {
				metrics.RecordReconcileTick("guests", "ok")
			}
		}
	}
}

// ReconcileOnce performs a single reconciliation pass. Failures are
// isolated per site and per record; only a failure to load the record set
// aborts the pass.
func (r *GuestReconciler) ReconcileOnce(ctx context.Context) error {
	guests, err := r.store.ListGuests(ctx)
	if err != nil {
		return err
	}

	guests = r.deleteAged(ctx, guests)

	bySite := make(map[string][]*storage.Guest)
	for _, g := range guests {
		bySite[g.Site] = append(bySite[g.Site], g)
	}

	for site, siteGuests := range bySite {
		devices, err := r.devices.ListDevices(ctx, site, true)
		if err != nil {
			// Controller unreachable for this site; other sites still get
			// their pass, the next tick retries this one.
			r.logger.Warn("device listing failed, skipping site",
				"site", site, "error", err)
			continue
		}

		byMAC := make(map[string]*unifi.Device, len(devices))
		for i := range devices {
			byMAC[devices[i].MAC] = &devices[i]
		}

		for _, g := range siteGuests {
			if g.Status != storage.StatusApproved {
				continue
			}

			device, ok := byMAC[g.MAC]
			if !ok {
				// The controller has no entry yet, or the device briefly
				// dropped. Not an expiry.
				continue
			}

			if r.applyDevice(g, device) {
				if err := r.store.UpdateGuest(ctx, g); err != nil {
					r.logger.Error("failed to persist reconciled guest",
						"id", g.ID, "mac", g.MAC, "error", err)
				}
			}
		}
	}

	return nil
}

// deleteAged hard-deletes records older than the configured maximum age,
// regardless of status, and returns the surviving set.
func (r *GuestReconciler) deleteAged(ctx context.Context, guests []*storage.Guest) []*storage.Guest {
	if r.maxAge <= 0 {
		return guests
	}

	now := r.now()
	kept := guests[:0]
	for _, g := range guests {
		if now.Sub(g.StartTime) < r.maxAge {
			kept = append(kept, g)
			continue
		}
		if err := r.store.DeleteGuest(ctx, g.ID); err != nil {
			r.logger.Error("failed to delete aged guest record",
				"id", g.ID, "mac", g.MAC, "error", err)
			continue
		}
		r.logger.Info("deleted aged guest record", "id", g.ID, "mac", g.MAC)
	}
	return kept
}

// applyDevice folds the controller's report into the record and reports
// whether anything changed. The controller is authoritative for hostname
// and byte counters; absent fields are left alone.
func (r *GuestReconciler) applyDevice(g *storage.Guest, d *unifi.Device) bool {
	changed := false

	if d.IsExpired() {
		g.Status = storage.StatusExpired
		changed = true
		metrics.RecordGuestExpired()
	}

	if d.Hostname != nil && g.Hostname != *d.Hostname {
		g.Hostname = *d.Hostname
		changed = true
	}
	if d.RxBytes != nil && g.RxBytes != *d.RxBytes {
		g.RxBytes = *d.RxBytes
		changed = true
	}
	if d.TxBytes != nil && g.TxBytes != *d.TxBytes {
		g.TxBytes = *d.TxBytes
		changed = true
	}

	return changed
}
