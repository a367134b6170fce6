// Package main provides the entry point for the guest portal service.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/config"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/directory"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/httpapi"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/reconcile"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/unifi"

	_ "modernc.org/sqlite"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(parseLogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting guest portal service", "version", version, "addr", cfg.ListenAddr)

	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics init failed: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	store := storage.NewSQLiteStorage(db)
	defer func() {
		//nolint:errcheck
		store.Close()
	}()

	controller := unifi.NewClient(cfg.UniFiURL, cfg.UniFiUsername, cfg.UniFiPassword,
		unifi.WithSessionTTL(cfg.UniFiSessionTTL),
		unifi.WithLogger(logger),
	)

	var dir directory.Service
	if cfg.DirectoryEnabled() {
		dir = directory.NewLDAPService(directory.Config{
			Server:       cfg.LDAPServer,
			BindDN:       cfg.LDAPBindDN,
			BindPassword: cfg.LDAPBindPassword,
			BaseDN:       cfg.LDAPBaseDN,
			UsernameAttr: cfg.LDAPUsernameAttr,
			NameAttr:     cfg.LDAPNameAttr,
			MailAttr:     cfg.LDAPMailAttr,
		}, logger)
		logger.Info("directory integration enabled", "server", cfg.LDAPServer)
	}

	codes := portal.NewCodeService(store, logger)
	portalSvc := portal.NewService(store, controller, codes, dir, portal.Config{
		DefaultMinutes:   cfg.GuestDefaultMinutes,
		AccessClass:      cfg.DefaultAccessClass,
		CodeSize:         cfg.CodeSize,
		CodeNumericOnly:  cfg.CodeNumericOnly,
		CodeValidityDays: cfg.CodeValidityDays,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guestLoop := reconcile.NewGuestReconciler(store, controller, cfg.GuestMaxAge,
		cfg.GuestSyncInterval, logger)
	go guestLoop.Run(ctx)

	dirLoop := reconcile.NewDirectorySyncer(store, dir, reconcile.Groups{
		Admins:    cfg.LDAPAdminGroups,
		Approvers: cfg.LDAPApproverGroups,
		Users:     cfg.LDAPUserGroups,
	}, reconcile.CodePolicy{
		Size:               cfg.CodeSize,
		NumericOnly:        cfg.CodeNumericOnly,
		ValidityDays:       cfg.CodeValidityDays,
		DefaultAccessClass: cfg.DefaultAccessClass,
	}, cfg.DirectorySyncInterval, logger)
	go dirLoop.Run(ctx)

	sessions := httpapi.NewSessionStore(0)
	go sessionCleanup(ctx, sessions)

	handler := httpapi.NewHandler(portalSvc, store, sessions, logLevel, logger)
	handler.GuestPage = cfg.GuestLoginPage

	apiServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.NewRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:        cfg.MetricsListenAddr,
		Handler:     metricsMux,
		ReadTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api listener started", "addr", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server failed: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listener started", "addr", cfg.MetricsListenAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sessionCleanup drops expired operator sessions once an hour.
func sessionCleanup(ctx context.Context, sessions *httpapi.SessionStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Cleanup(ctx)
		}
	}
}
