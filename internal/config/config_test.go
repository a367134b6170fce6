package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("UNIFI_URL", "https://controller:8443/api")
	t.Setenv("UNIFI_USERNAME", "admin")
	t.Setenv("UNIFI_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %q", cfg.ListenAddr)
	}
	if cfg.GuestDefaultMinutes != 480 {
		t.Errorf("expected default minutes 480, got %d", cfg.GuestDefaultMinutes)
	}
	if cfg.GuestSyncInterval != 60*time.Second {
		t.Errorf("expected default guest sync interval 60s, got %v", cfg.GuestSyncInterval)
	}
	if cfg.DirectorySyncInterval != 20*time.Second {
		t.Errorf("expected default directory sync interval 20s, got %v", cfg.DirectorySyncInterval)
	}
	if cfg.CodeSize != 8 || cfg.CodeNumericOnly {
		t.Errorf("expected default code policy 8/alphanumeric, got %d/%v",
			cfg.CodeSize, cfg.CodeNumericOnly)
	}
	if cfg.DirectoryEnabled() {
		t.Error("expected directory integration to be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GUEST_MAX_AGE", "72h")
	t.Setenv("CODE_NUMERIC_ONLY", "true")
	t.Setenv("CODE_VALIDITY_DAYS", "7")
	t.Setenv("LDAP_ADMIN_GROUPS", "wifi-admins, net-ops,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GuestMaxAge != 72*time.Hour {
		t.Errorf("expected max age 72h, got %v", cfg.GuestMaxAge)
	}
	if !cfg.CodeNumericOnly {
		t.Error("expected numeric-only codes")
	}
	if cfg.CodeValidityDays != 7 {
		t.Errorf("expected validity of 7 days, got %d", cfg.CodeValidityDays)
	}
	if len(cfg.LDAPAdminGroups) != 2 || cfg.LDAPAdminGroups[1] != "net-ops" {
		t.Errorf("expected trimmed group list, got %v", cfg.LDAPAdminGroups)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("GUEST_DEFAULT_MINUTES", "lots")

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject a non-integer value")
	}
}

func TestValidateRequiresController(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to require controller coordinates")
	}
}

func TestValidateRequiresLDAPBind(t *testing.T) {
	setRequired(t)
	t.Setenv("LDAP_SERVER", "ldap://directory:389")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to require bind settings when LDAP is enabled")
	}

	t.Setenv("LDAP_BIND_DN", "cn=svc,dc=example,dc=com")
	t.Setenv("LDAP_BIND_PASSWORD", "secret")
	t.Setenv("LDAP_BASE_DN", "dc=example,dc=com")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected Validate to pass with bind settings, got %v", err)
	}
	if !cfg.DirectoryEnabled() {
		t.Error("expected directory integration to be enabled")
	}
}

func TestValidateCodeSize(t *testing.T) {
	setRequired(t)
	t.Setenv("CODE_SIZE", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject tiny codes")
	}
}

func TestLoadLDAPAttributes(t *testing.T) {
	setRequired(t)
	t.Setenv("LDAP_USERNAME_ATTR", "uid")
	t.Setenv("LDAP_NAME_ATTR", "displayName")
	t.Setenv("LDAP_MAIL_ATTR", "userPrincipalName")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LDAPUsernameAttr != "uid" {
		t.Errorf("expected username attribute uid, got %q", cfg.LDAPUsernameAttr)
	}
	if cfg.LDAPNameAttr != "displayName" {
		t.Errorf("expected name attribute displayName, got %q", cfg.LDAPNameAttr)
	}
	if cfg.LDAPMailAttr != "userPrincipalName" {
		t.Errorf("expected mail attribute userPrincipalName, got %q", cfg.LDAPMailAttr)
	}
}

func TestLoadGuestLoginPage(t *testing.T) {
	setRequired(t)
	t.Setenv("GUEST_LOGIN_PAGE", "/srv/portal/index.html")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GuestLoginPage != "/srv/portal/index.html" {
		t.Errorf("expected the portal page path, got %q", cfg.GuestLoginPage)
	}
}
