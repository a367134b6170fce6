package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/directory"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/metrics"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/portal"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// DefaultDirectoryInterval is the tick interval of the directory
// synchronization loop.
const DefaultDirectoryInterval = 20 * time.Second

// Groups names the directory groups feeding each local role.
type Groups struct {
	Admins    []string
	Approvers []string
	Users     []string
}

// CodePolicy controls the approval code minted for approvers created by
// directory sync.
type CodePolicy struct {
	Size         int
	NumericOnly  bool
	ValidityDays int

	// DefaultAccessClass, when non-empty, is granted as the scope of every
	// directory-created approver.
	DefaultAccessClass string
}

// DirectorySyncer performs a full reconciliation of directory-backed role
// records against the directory's group membership: members without a local
// record are created, local directory-backed records whose person left
// every configured group are deleted. Records with a local password are
// never touched.
type DirectorySyncer struct {
	store    storage.Storage
	dir      directory.Service // nil when directory integration is off
	groups   Groups
	codes    CodePolicy
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewDirectorySyncer creates the sync loop. With a nil directory service
// the loop does nothing.
func NewDirectorySyncer(store storage.Storage, dir directory.Service, groups Groups,
	codes CodePolicy, interval time.Duration, logger *slog.Logger) *DirectorySyncer {
	if interval <= 0 {
		interval = DefaultDirectoryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySyncer{
		store:    store,
		dir:      dir,
		groups:   groups,
		codes:    codes,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the loop until the context is cancelled.
func (s *DirectorySyncer) Run(ctx context.Context) {
	if s.dir == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("directory sync tick failed", "error", err)
				metrics.RecordReconcileTick("directory", "error")
			} else {
				metrics.RecordReconcileTick("directory", "ok")
			}
		}
	}
}

// SyncOnce performs a single full synchronization. A bind failure aborts
// the whole tick (no partial synchronization); failures within one group
// are logged and the remaining groups still run.
func (s *DirectorySyncer) SyncOnce(ctx context.Context) error {
	if s.dir == nil {
		return nil
	}

	conn, err := s.dir.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.syncAdmins(ctx, conn)
	s.syncApprovers(ctx, conn)
	s.syncUsers(ctx, conn)
	return nil
}

func (s *DirectorySyncer) syncAdmins(ctx context.Context, conn directory.Conn) {
	existing, err := s.store.ListAdmins(ctx)
	if err != nil {
		s.logger.Error("failed to list admins for sync", "error", err)
		return
	}

	unaccounted := make(map[string]*storage.Admin)
	for _, a := range existing {
		if a.Credential.DirectoryBacked() {
			unaccounted[a.Username] = a
		}
	}

	created := make(map[string]bool)
	incomplete := false
	for _, group := range s.groups.Admins {
		members, err := conn.GroupMembers(ctx, group)
		if err != nil {
			s.logger.Warn("group resolution failed, skipping group",
				"role", "admin", "group", group, "error", err)
			incomplete = true
			continue
		}

		for _, m := range members {
			if _, ok := unaccounted[m.Username]; ok {
				delete(unaccounted, m.Username)
				continue
			}
			if created[m.Username] {
				continue
			}

			admin := &storage.Admin{
				Name:       m.Name,
				Username:   m.Username,
				Credential: storage.DirectoryCredential(),
			}
			if err := s.store.SaveAdmin(ctx, admin); err != nil {
				s.logSaveErr("admin", m.Username, err)
				continue
			}
			created[m.Username] = true
			metrics.RecordDirectoryRecord("admin", "created")
		}
	}

	// With a failed group the unaccounted set is unreliable; deleting on it
	// would drop members of the unresolved group.
	if incomplete {
		return
	}

	for _, a := range unaccounted {
		if err := s.store.DeleteAdmin(ctx, a.ID); err != nil {
			s.logger.Error("failed to delete stale admin",
				"username", a.Username, "error", err)
			continue
		}
		metrics.RecordDirectoryRecord("admin", "deleted")
	}
}

func (s *DirectorySyncer) syncApprovers(ctx context.Context, conn directory.Conn) {
	existing, err := s.store.ListApprovers(ctx)
	if err != nil {
		s.logger.Error("failed to list approvers for sync", "error", err)
		return
	}

	unaccounted := make(map[string]*storage.Approver)
	for _, a := range existing {
		if a.Credential.DirectoryBacked() {
			unaccounted[a.Username] = a
		}
	}

	created := make(map[string]bool)
	incomplete := false
	for _, group := range s.groups.Approvers {
		members, err := conn.GroupMembers(ctx, group)
		if err != nil {
			s.logger.Warn("group resolution failed, skipping group",
				"role", "approver", "group", group, "error", err)
			incomplete = true
			continue
		}

		for _, m := range members {
			if _, ok := unaccounted[m.Username]; ok {
				delete(unaccounted, m.Username)
				continue
			}
			if created[m.Username] {
				continue
			}

			if err := s.createApprover(ctx, m); err != nil {
				s.logSaveErr("approver", m.Username, err)
				continue
			}
			created[m.Username] = true
			metrics.RecordDirectoryRecord("approver", "created")
		}
	}

	if incomplete {
		return
	}

	for _, a := range unaccounted {
		if err := s.store.DeleteApprover(ctx, a.ID); err != nil {
			s.logger.Error("failed to delete stale approver",
				"username", a.Username, "error", err)
			continue
		}
		metrics.RecordDirectoryRecord("approver", "deleted")
	}
}

// createApprover persists a directory member as an approver with a freshly
// issued, hashed approval code. The plaintext is intentionally discarded:
// the approver mints their own code through the portal before first use.
func (s *DirectorySyncer) createApprover(ctx context.Context, m directory.Member) error {
	code, err := portal.GenerateCode(s.codes.Size, s.codes.NumericOnly)
	if err != nil {
		return err
	}
	hash, err := storage.HashSecret(code)
	if err != nil {
		return err
	}

	approver := &storage.Approver{
		Username:   m.Username,
		Email:      m.Email,
		Credential: storage.DirectoryCredential(),
		CodeHash:   hash,
		Validity:   portal.ValidityFrom(s.now(), s.codes.ValidityDays),
	}
	if s.codes.DefaultAccessClass != "" {
		approver.ApprovedTypes = []string{s.codes.DefaultAccessClass}
	}

	return s.store.SaveApprover(ctx, approver)
}

func (s *DirectorySyncer) syncUsers(ctx context.Context, conn directory.Conn) {
	existing, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users for sync", "error", err)
		return
	}

	unaccounted := make(map[string]*storage.User)
	for _, u := range existing {
		if u.Credential.DirectoryBacked() {
			unaccounted[u.Username] = u
		}
	}

	created := make(map[string]bool)
	incomplete := false
	for _, group := range s.groups.Users {
		members, err := conn.GroupMembers(ctx, group)
		if err != nil {
			s.logger.Warn("group resolution failed, skipping group",
				"role", "user", "group", group, "error", err)
			incomplete = true
			continue
		}

		for _, m := range members {
			if _, ok := unaccounted[m.Username]; ok {
				delete(unaccounted, m.Username)
				continue
			}
			if created[m.Username] {
				continue
			}

			user := &storage.User{
				Username:   m.Username,
				Email:      m.Email,
				Credential: storage.DirectoryCredential(),
				Profile: storage.Guest{
					FullName: m.Name,
					Email:    m.Email,
				},
			}
			if err := s.store.SaveUser(ctx, user); err != nil {
				s.logSaveErr("user", m.Username, err)
				continue
			}
			created[m.Username] = true
			metrics.RecordDirectoryRecord("user", "created")
		}
	}

	if incomplete {
		return
	}

	for _, u := range unaccounted {
		if err := s.store.DeleteUser(ctx, u.ID); err != nil {
			s.logger.Error("failed to delete stale user",
				"username", u.Username, "error", err)
			continue
		}
		metrics.RecordDirectoryRecord("user", "deleted")
	}
}

// logSaveErr downgrades duplicate-username collisions: a password-set local
// record with the same username shadows the directory member and is left
// alone.
func (s *DirectorySyncer) logSaveErr(role, username string, err error) {
	if errors.Is(err, storage.ErrDuplicate) {
		s.logger.Debug("directory member shadowed by local record",
			"role", role, "username", username)
		return
	}
	s.logger.Error("failed to create directory-backed record",
		"role", role, "username", username, "error", err)
}
