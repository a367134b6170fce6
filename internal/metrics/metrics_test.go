package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	RecordRequest("GET", "/api/guests", "OK")
	RecordRequestDuration("GET", "/api/guests", "OK", 0.05)
	RecordAuthFailure("bad_password")
	RecordReconcileTick("guests", "ok")
	RecordGuestExpired()
	RecordDirectoryRecord("approver", "created")
	RecordControllerCommand("authorize-guest", "ok")

	text, err := GetMetricsText(reg)
	if err != nil {
		t.Fatalf("GetMetricsText failed: %v", err)
	}

	expected := []string{
		"unifi_connect_requests_total",
		"unifi_connect_request_duration_seconds",
		"unifi_connect_auth_failures_total",
		"unifi_connect_reconcile_ticks_total",
		"unifi_connect_guests_expired_total",
		"unifi_connect_directory_records_total",
		"unifi_connect_controller_commands_total",
		"unifi_connect_info",
	}
	for _, name := range expected {
		if !strings.Contains(text, name) {
			t.Errorf("expected metric %s in output", name)
		}
	}
}

func TestInitRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(reg); err == nil {
		t.Error("expected second Init on the same registry to fail")
	}
}

func TestRecordBeforeInitIsSafe(t *testing.T) {
	// Record functions must not panic before Init wires the vectors.
	RecordReconcileTick("guests", "ok")
	RecordControllerCommand("kick-sta", "error")
}
