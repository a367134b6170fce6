package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Config holds the directory connection settings. The attribute names are
// configurable because deployments disagree on where the login name lives
// (sAMAccountName vs uid).
type Config struct {
	Server       string // ldap:// or ldaps:// URL
	BindDN       string // service-account DN
	BindPassword string
	BaseDN       string

	UsernameAttr string // defaults to sAMAccountName
	NameAttr     string // defaults to cn
	MailAttr     string // defaults to mail
}

// LDAPService implements Service over go-ldap. Each Connect dials a fresh
// connection; the underlying library is not safe for concurrent use of one
// connection across ticks.
type LDAPService struct {
	cfg    Config
	logger *slog.Logger
}

// NewLDAPService creates a directory service for the given config.
func NewLDAPService(cfg Config, logger *slog.Logger) *LDAPService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "sAMAccountName"
	}
	if cfg.NameAttr == "" {
		cfg.NameAttr = "cn"
	}
	if cfg.MailAttr == "" {
		cfg.MailAttr = "mail"
	}
	return &LDAPService{cfg: cfg, logger: logger}
}

// Connect dials the directory and binds with the service account.
func (s *LDAPService) Connect(ctx context.Context) (Conn, error) {
	conn, err := s.dialAndBind(ctx, s.cfg.BindDN, s.cfg.BindPassword)
	if err != nil {
		return nil, err
	}
	return &ldapConn{svc: s, conn: conn}, nil
}

// Authenticate verifies user credentials by resolving the user's DN with
// the service account and then binding as the user.
func (s *LDAPService) Authenticate(ctx context.Context, username, password string) error {
	conn, err := s.dialAndBind(ctx, s.cfg.BindDN, s.cfg.BindPassword)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	filter := fmt.Sprintf("(%s=%s)", s.cfg.UsernameAttr, ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(s.cfg.BaseDN, ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 1, 0, false, filter, []string{"dn"}, nil)

	res, err := conn.Search(req)
	if err != nil {
		return fmt.Errorf("directory: user search failed: %w", err)
	}
	if len(res.Entries) == 0 {
		return ErrUserNotFound
	}

	if err := conn.Bind(res.Entries[0].DN, password); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *LDAPService) dialAndBind(ctx context.Context, dn, password string) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(s.cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("directory: dial failed: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}

	if err := conn.Bind(dn, password); err != nil {
		conn.Close() //nolint:errcheck
		return nil, fmt.Errorf("directory: bind failed: %w", err)
	}
	return conn, nil
}

// ldapConn wraps one bound connection for a sync tick.
type ldapConn struct {
	svc  *LDAPService
	conn *ldap.Conn
}

// GroupMembers searches the group entry for member DNs and resolves each to
// a Member via a per-entry attribute lookup.
func (c *ldapConn) GroupMembers(ctx context.Context, group string) ([]Member, error) {
	cfg := c.svc.cfg

	filter := fmt.Sprintf("(cn=%s)", ldap.EscapeFilter(group))
	req := ldap.NewSearchRequest(cfg.BaseDN, ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 0, 0, false, filter, []string{"member"}, nil)

	res, err := c.conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory: group search failed: %w", err)
	}

	members := make([]Member, 0)
	for _, entry := range res.Entries {
		for _, dn := range entry.GetAttributeValues("member") {
			member, err := c.memberDetails(dn)
			if err != nil {
				c.svc.logger.Warn("skipping unresolvable group member",
					"group", group, "dn", dn, "error", err)
				continue
			}
			members = append(members, member)
		}
	}

	return members, nil
}

// memberDetails fetches the identity attributes of one member DN.
func (c *ldapConn) memberDetails(dn string) (Member, error) {
	cfg := c.svc.cfg

	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject,
		ldap.NeverDerefAliases, 1, 0, false, "(objectClass=*)",
		[]string{cfg.UsernameAttr, cfg.NameAttr, cfg.MailAttr}, nil)

	res, err := c.conn.Search(req)
	if err != nil {
		return Member{}, err
	}
	if len(res.Entries) == 0 {
		return Member{}, ErrUserNotFound
	}

	entry := res.Entries[0]
	m := Member{
		Username: entry.GetAttributeValue(cfg.UsernameAttr),
		Name:     entry.GetAttributeValue(cfg.NameAttr),
		Email:    entry.GetAttributeValue(cfg.MailAttr),
	}
	if m.Username == "" {
		return Member{}, fmt.Errorf("directory: entry %s has no %s attribute", dn, cfg.UsernameAttr)
	}
	return m, nil
}

func (c *ldapConn) Close() {
	c.conn.Close() //nolint:errcheck
}
