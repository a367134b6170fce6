// Package metrics provides Prometheus metrics for the portal service.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Stored behind atomic.Pointer so record functions stay lock-free and
	// safe to call before Init (they no-op until the vectors exist).
	requestsTotal           atomic.Pointer[prometheus.CounterVec]
	requestDuration         atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal       atomic.Pointer[prometheus.CounterVec]
	reconcileTicksTotal     atomic.Pointer[prometheus.CounterVec]
	guestsExpiredTotal      atomic.Pointer[prometheus.Counter]
	directoryRecordsTotal   atomic.Pointer[prometheus.CounterVec]
	controllerCommandsTotal atomic.Pointer[prometheus.CounterVec]
)

// Init registers all metrics with the provided registry. Call once at
// startup.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "auth_failures_total",
			Help:      "Total number of failed login and code validation attempts",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	reconcileTicksTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "reconcile_ticks_total",
			Help:      "Total reconciliation loop ticks by loop and outcome",
		},
		[]string{"loop", "status"},
	)
	if err := reg.Register(reconcileTicksTotalVec); err != nil {
		return fmt.Errorf("failed to register reconcileTicksTotal: %w", err)
	}

	guestsExpiredCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "guests_expired_total",
			Help:      "Total guest records moved to expired by reconciliation",
		},
	)
	if err := reg.Register(guestsExpiredCounter); err != nil {
		return fmt.Errorf("failed to register guestsExpired: %w", err)
	}

	directoryRecordsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "directory_records_total",
			Help:      "Role records created or deleted by directory sync",
		},
		[]string{"role", "action"},
	)
	if err := reg.Register(directoryRecordsTotalVec); err != nil {
		return fmt.Errorf("failed to register directoryRecordsTotal: %w", err)
	}

	controllerCommandsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "controller_commands_total",
			Help:      "Commands sent to the wireless controller by command and outcome",
		},
		[]string{"command", "status"},
	)
	if err := reg.Register(controllerCommandsTotalVec); err != nil {
		return fmt.Errorf("failed to register controllerCommandsTotal: %w", err)
	}

	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "unifi",
			Subsystem: "connect",
			Name:      "info",
			Help:      "Service version information",
		},
		[]string{"version"},
	)
	if err := reg.Register(infoGaugeVec); err != nil {
		return fmt.Errorf("failed to register infoGauge: %w", err)
	}
	infoGaugeVec.WithLabelValues("1.0.0").Set(1)

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	reconcileTicksTotal.Store(reconcileTicksTotalVec)
	guestsExpiredTotal.Store(&guestsExpiredCounter)
	directoryRecordsTotal.Store(directoryRecordsTotalVec)
	controllerCommandsTotal.Store(controllerCommandsTotalVec)

	return nil
}

// RecordRequest increments the request counter. The path should be the
// route pattern, not the raw URL.
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records request latency in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordAuthFailure increments the auth failure counter. Common reasons:
// "bad_password", "bad_code", "no_session".
func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

// RecordReconcileTick records one loop tick. loop is "guests" or
// "directory", status is "ok" or "error".
func RecordReconcileTick(loop, status string) {
	if counter := reconcileTicksTotal.Load(); counter != nil {
		counter.WithLabelValues(loop, status).Inc()
	}
}

// RecordGuestExpired increments the expired-guest counter.
func RecordGuestExpired() {
	if counter := guestsExpiredTotal.Load(); counter != nil {
		(*counter).Inc()
	}
}

// RecordDirectoryRecord records a role record created or deleted by
// directory sync.
func RecordDirectoryRecord(role, action string) {
	if counter := directoryRecordsTotal.Load(); counter != nil {
		counter.WithLabelValues(role, action).Inc()
	}
}

// RecordControllerCommand records a controller command outcome.
func RecordControllerCommand(command, status string) {
	if counter := controllerCommandsTotal.Load(); counter != nil {
		counter.WithLabelValues(command, status).Inc()
	}
}

// Handler returns the HTTP handler serving Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GetMetricsText renders a registry in Prometheus text format, for tests.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}
	return string(body), nil
}
