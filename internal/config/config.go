// Package config provides configuration loading and validation from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string // debug, info, warn, error
	ListenAddr        string // API listen address (e.g., ":8080")
	MetricsListenAddr string // Metrics listener address (e.g., "localhost:9090")
	DatabasePath      string // SQLite database path

	// Wireless controller.
	UniFiURL        string        // Required: controller API base URL
	UniFiUsername   string        // Required: controller login
	UniFiPassword   string        // Required: controller password
	UniFiSessionTTL time.Duration // How long a controller login is reused

	// Guest policy.
	GuestDefaultMinutes int           // Connection duration for form requests
	GuestMaxAge         time.Duration // Record age before hard deletion; zero keeps forever
	GuestSyncInterval   time.Duration // Guest reconciliation tick

	// Approval codes.
	CodeSize           int    // Generated code length
	CodeNumericOnly    bool   // Digits-only codes
	CodeValidityDays   int    // Days until midnight expiry; zero = permanent
	DefaultAccessClass string // Scope required of codes on self-connect

	// Directory (optional; empty LDAPServer disables integration).
	LDAPServer            string
	LDAPBindDN            string
	LDAPBindPassword      string
	LDAPBaseDN            string
	LDAPUsernameAttr      string // login-name attribute; empty uses sAMAccountName
	LDAPNameAttr          string // display-name attribute; empty uses cn
	LDAPMailAttr          string // mail attribute; empty uses mail
	LDAPAdminGroups       []string
	LDAPApproverGroups    []string
	LDAPUserGroups        []string
	DirectorySyncInterval time.Duration

	// GuestLoginPage is the path of the static portal page served at
	// /guest/index; empty disables it.
	GuestLoginPage string
}

// Load parses configuration from environment variables. Everything except
// the controller coordinates has a default.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          envOr("LOG_LEVEL", "info"),
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		MetricsListenAddr: envOr("METRICS_LISTEN_ADDR", "localhost:9090"),
		DatabasePath:      envOr("DATABASE_PATH", "/data/portal.db"),

		UniFiURL:      os.Getenv("UNIFI_URL"),
		UniFiUsername: os.Getenv("UNIFI_USERNAME"),
		UniFiPassword: os.Getenv("UNIFI_PASSWORD"),

		DefaultAccessClass: os.Getenv("DEFAULT_ACCESS_CLASS"),

		LDAPServer:       os.Getenv("LDAP_SERVER"),
		LDAPBindDN:       os.Getenv("LDAP_BIND_DN"),
		LDAPBindPassword: os.Getenv("LDAP_BIND_PASSWORD"),
		LDAPBaseDN:       os.Getenv("LDAP_BASE_DN"),
		LDAPUsernameAttr: os.Getenv("LDAP_USERNAME_ATTR"),
		LDAPNameAttr:     os.Getenv("LDAP_NAME_ATTR"),
		LDAPMailAttr:     os.Getenv("LDAP_MAIL_ATTR"),

		LDAPAdminGroups:    splitList(os.Getenv("LDAP_ADMIN_GROUPS")),
		LDAPApproverGroups: splitList(os.Getenv("LDAP_APPROVER_GROUPS")),
		LDAPUserGroups:     splitList(os.Getenv("LDAP_USER_GROUPS")),

		GuestLoginPage: os.Getenv("GUEST_LOGIN_PAGE"),
	}

	var err error
	if cfg.UniFiSessionTTL, err = envDuration("UNIFI_SESSION_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GuestDefaultMinutes, err = envInt("GUEST_DEFAULT_MINUTES", 480); err != nil {
		return nil, err
	}
	if cfg.GuestMaxAge, err = envDuration("GUEST_MAX_AGE", 0); err != nil {
		return nil, err
	}
	if cfg.GuestSyncInterval, err = envDuration("GUEST_SYNC_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.CodeSize, err = envInt("CODE_SIZE", 8); err != nil {
		return nil, err
	}
	if cfg.CodeNumericOnly, err = envBool("CODE_NUMERIC_ONLY", false); err != nil {
		return nil, err
	}
	if cfg.CodeValidityDays, err = envInt("CODE_VALIDITY_DAYS", 1); err != nil {
		return nil, err
	}
	if cfg.DirectorySyncInterval, err = envDuration("DIRECTORY_SYNC_INTERVAL", 20*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if c.UniFiURL == "" {
		return fmt.Errorf("UNIFI_URL environment variable is required")
	}
	if c.UniFiUsername == "" {
		return fmt.Errorf("UNIFI_USERNAME environment variable is required")
	}
	if c.UniFiPassword == "" {
		return fmt.Errorf("UNIFI_PASSWORD environment variable is required")
	}
	if c.CodeSize < 4 {
		return fmt.Errorf("CODE_SIZE must be at least 4, got %d", c.CodeSize)
	}
	if c.GuestDefaultMinutes <= 0 {
		return fmt.Errorf("GUEST_DEFAULT_MINUTES must be positive, got %d", c.GuestDefaultMinutes)
	}
	if c.LDAPServer != "" {
		if c.LDAPBindDN == "" || c.LDAPBindPassword == "" || c.LDAPBaseDN == "" {
			return fmt.Errorf("LDAP_BIND_DN, LDAP_BIND_PASSWORD and LDAP_BASE_DN are required when LDAP_SERVER is set")
		}
	}
	return nil
}

// DirectoryEnabled reports whether directory integration is configured.
func (c *Config) DirectoryEnabled() bool {
	return c.LDAPServer != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like \"60s\" or \"24h\", got %q", key, v)
	}
	return d, nil
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
