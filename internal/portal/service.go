package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/directory"
	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

// SelfServiceApprover is recorded as the approver on connections granted by
// a valid approval code without a named operator.
const SelfServiceApprover = "default"

var (
	// ErrInvalidTransition is returned when an operation would move a guest
	// out of a terminal state or skip the Pending state.
	ErrInvalidTransition = errors.New("portal: invalid lifecycle transition")

	// ErrInvalidLogin is returned when credentials do not match, whether
	// locally stored or directory-backed.
	ErrInvalidLogin = errors.New("portal: invalid username or password")
)

// Controller is the subset of the wireless controller client the lifecycle
// needs.
type Controller interface {
	Connect(ctx context.Context, g *storage.Guest) error
	Unauthorize(ctx context.Context, site, mac string) error
	Disconnect(ctx context.Context, site, mac string) error
}

// Config carries the guest-policy knobs for the portal service.
type Config struct {
	// DefaultMinutes is the connection duration granted to form-based
	// requests.
	DefaultMinutes int

	// AccessClass is the scope required of an approver code presented on a
	// guest self-connect.
	AccessClass string

	// Code issuance policy.
	CodeSize         int
	CodeNumericOnly  bool
	CodeValidityDays int
}

// Service implements the access-request lifecycle on top of the repository,
// the controller client and the approval-code subsystem.
type Service struct {
	store      storage.Storage
	controller Controller
	codes      *CodeService
	dir        directory.Service // nil when no directory is configured
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the portal service. dir may be nil when directory
// integration is not configured; directory-backed logins then fail.
func NewService(store storage.Storage, controller Controller, codes *CodeService,
	dir directory.Service, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		controller: controller,
		codes:      codes,
		dir:        dir,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Codes exposes the approval-code subsystem.
func (s *Service) Codes() *CodeService {
	return s.codes
}

// RequestAccess handles a connection request from the captive portal. With
// an empty code the record is saved Pending for later approval. With a code
// it must validate against an approver scoped to the configured access
// class; the device is then authorized immediately.
func (s *Service) RequestAccess(ctx context.Context, g *storage.Guest, code string) (storage.GuestStatus, error) {
	g.Status = storage.StatusPending
	g.Approver = SelfServiceApprover
	g.StartTime = s.now()
	if g.TimeConnection <= 0 {
		g.TimeConnection = s.cfg.DefaultMinutes
	}

	if code != "" {
		approver, err := s.codes.Validate(ctx, code, s.cfg.AccessClass)
		if err != nil {
			return "", err
		}

		g.Status = storage.StatusApproved
		g.Approver = approver

		if err := s.controller.Connect(ctx, g); err != nil {
			return "", fmt.Errorf("portal: connect failed: %w", err)
		}
	}

	if err := s.store.SaveGuest(ctx, g); err != nil {
		return "", err
	}

	s.logger.Info("connection request recorded",
		"mac", g.MAC, "site", g.Site, "status", g.Status)
	return g.Status, nil
}

// Approve moves a pending guest to Approved, authorizes the device and
// records who approved it. Only Pending records can be approved.
func (s *Service) Approve(ctx context.Context, id, approverName string, minutes int) error {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		return err
	}
	if g.Status != storage.StatusPending {
		return ErrInvalidTransition
	}

	g.Status = storage.StatusApproved
	g.Approver = approverName
	g.StartTime = s.now()
	if minutes > 0 {
		g.TimeConnection = minutes
	}

	if err := s.controller.Connect(ctx, g); err != nil {
		return fmt.Errorf("portal: connect failed: %w", err)
	}

	return s.store.UpdateGuest(ctx, g)
}

// Reject moves a pending guest to the terminal Rejected state. The
// controller-side unauthorize is best effort: the device was never
// authorized on this path, the command only clears stale entries.
func (s *Service) Reject(ctx context.Context, id, approverName string) error {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		return err
	}
	if g.Status != storage.StatusPending {
		return ErrInvalidTransition
	}

	if err := s.controller.Unauthorize(ctx, g.Site, g.MAC); err != nil {
		s.logger.Warn("unauthorize on reject failed",
			"mac", g.MAC, "site", g.Site, "error", err)
	}

	g.Status = storage.StatusRejected
	g.Approver = approverName
	return s.store.UpdateGuest(ctx, g)
}

// DirectConnect creates an already-approved record and authorizes the
// device in one step, for operator-driven connects without a prior request.
func (s *Service) DirectConnect(ctx context.Context, g *storage.Guest, approverName string) error {
	g.Status = storage.StatusApproved
	g.Approver = approverName
	g.StartTime = s.now()
	if g.TimeConnection <= 0 {
		g.TimeConnection = s.cfg.DefaultMinutes
	}

	if err := s.controller.Connect(ctx, g); err != nil {
		return fmt.Errorf("portal: connect failed: %w", err)
	}

	return s.store.SaveGuest(ctx, g)
}

// Disconnect kicks the device behind a record off the network. The record
// keeps its status; the reconciliation loop picks up the controller's view
// on the next tick. Terminal records have no live authorization to kick.
func (s *Service) Disconnect(ctx context.Context, id string) error {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		return err
	}
	if g.Status.Terminal() {
		return ErrInvalidTransition
	}
	return s.controller.Disconnect(ctx, g.Site, g.MAC)
}

// UserConnect authenticates a registered user and connects the device they
// are on, using the guest profile stored on the user record as the template.
// The record is created already Approved, with the user as its own approver.
func (s *Service) UserConnect(ctx context.Context, username, password, mac, site string) (*storage.Guest, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if err := s.verifyCredential(ctx, user.Credential, username, password); err != nil {
		return nil, err
	}

	g := &storage.Guest{
		FullName:       user.Profile.FullName,
		Email:          user.Profile.Email,
		Phone:          user.Profile.Phone,
		Fields:         user.Profile.Fields,
		MAC:            mac,
		Site:           site,
		Status:         storage.StatusApproved,
		Approver:       username,
		TimeConnection: user.Profile.TimeConnection,
		StartTime:      s.now(),
	}
	if g.FullName == "" {
		g.FullName = username
	}
	if g.Email == "" {
		g.Email = user.Email
	}
	if g.Site == "" {
		g.Site = user.Profile.Site
	}
	if g.TimeConnection <= 0 {
		g.TimeConnection = s.cfg.DefaultMinutes
	}

	if err := s.controller.Connect(ctx, g); err != nil {
		return nil, fmt.Errorf("portal: connect failed: %w", err)
	}
	if err := s.store.SaveGuest(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("user self-connect",
		"username", username, "mac", g.MAC, "site", g.Site)
	return g, nil
}

// StatusByMAC returns the lifecycle status of the most recent record for a
// device. Returns storage.ErrNotFound when the device has no record.
func (s *Service) StatusByMAC(ctx context.Context, mac string) (storage.GuestStatus, error) {
	guests, err := s.store.ListGuests(ctx)
	if err != nil {
		return "", err
	}

	var latest *storage.Guest
	for _, g := range guests {
		if g.MAC != mac {
			continue
		}
		if latest == nil || g.StartTime.After(latest.StartTime) {
			latest = g
		}
	}

	if latest == nil {
		return "", storage.ErrNotFound
	}
	return latest.Status, nil
}

// IssueApproverCode verifies the approver's credentials and mints a fresh
// approval code under the configured policy. Returns the plaintext code and
// its validity in days.
func (s *Service) IssueApproverCode(ctx context.Context, username, password string) (string, int, error) {
	if err := s.AuthenticateApprover(ctx, username, password); err != nil {
		return "", 0, err
	}

	code, err := s.codes.Issue(ctx, username, s.cfg.CodeSize, s.cfg.CodeNumericOnly, s.cfg.CodeValidityDays)
	if err != nil {
		return "", 0, err
	}
	return code, s.cfg.CodeValidityDays, nil
}

// CreateApprover registers an approver. An empty password makes the record
// directory-backed. A non-empty code is hashed and given the configured
// validity window; only the hash is stored.
func (s *Service) CreateApprover(ctx context.Context, username, email, password, code string,
	types []string) (*storage.Approver, error) {
	a := &storage.Approver{
		Username:      username,
		Email:         email,
		Credential:    storage.DirectoryCredential(),
		ApprovedTypes: types,
	}

	if password != "" {
		hash, err := storage.HashSecret(password)
		if err != nil {
			return nil, err
		}
		a.Credential = storage.LocalCredential(hash)
	}
	if code != "" {
		hash, err := storage.HashSecret(code)
		if err != nil {
			return nil, err
		}
		a.CodeHash = hash
		a.Validity = ValidityFrom(s.now(), s.cfg.CodeValidityDays)
	}

	if err := s.store.SaveApprover(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("approver created", "username", username)
	return a, nil
}

// UpdateApprover changes an approver's email, password or code. Nil fields
// are left untouched; a new code restarts the validity window.
func (s *Service) UpdateApprover(ctx context.Context, id string, email, password, code *string) error {
	approvers, err := s.store.ListApprovers(ctx)
	if err != nil {
		return err
	}

	var a *storage.Approver
	for _, candidate := range approvers {
		if candidate.ID == id {
			a = candidate
			break
		}
	}
	if a == nil {
		return storage.ErrNotFound
	}

	if email != nil {
		a.Email = *email
	}
	if password != nil {
		hash, err := storage.HashSecret(*password)
		if err != nil {
			return err
		}
		a.Credential = storage.LocalCredential(hash)
	}
	if code != nil {
		hash, err := storage.HashSecret(*code)
		if err != nil {
			return err
		}
		a.CodeHash = hash
		a.Validity = ValidityFrom(s.now(), s.cfg.CodeValidityDays)
	}

	return s.store.UpdateApprover(ctx, a)
}

// AuthenticateApprover verifies an approver's credentials. Directory-backed
// approvers must authenticate via the directory; their empty local
// credential never matches a password.
func (s *Service) AuthenticateApprover(ctx context.Context, username, password string) error {
	approver, err := s.store.GetApproverByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidLogin
		}
		return err
	}
	return s.verifyCredential(ctx, approver.Credential, username, password)
}

// AuthenticateAdmin verifies an admin's credentials, with the same
// directory fallback as approvers.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) (*storage.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if err := s.verifyCredential(ctx, admin.Credential, username, password); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *Service) verifyCredential(ctx context.Context, cred storage.Credential, username, password string) error {
	if cred.DirectoryBacked() {
		if s.dir == nil {
			return ErrInvalidLogin
		}
		if err := s.dir.Authenticate(ctx, username, password); err != nil {
			return ErrInvalidLogin
		}
		return nil
	}

	if storage.VerifySecret(password, cred.Hash()) != nil {
		return ErrInvalidLogin
	}
	return nil
}
