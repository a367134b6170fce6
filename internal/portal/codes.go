// Package portal implements the access-request lifecycle and the
// approval-code subsystem.
package portal

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/Bruno-Camargo-V3ktor/UniFiConnectAPI/internal/storage"
)

const (
	alphanumericCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	numericCharset      = "0123456789"
)

// ErrCodeNotFound is returned when a presented code matches no usable
// approver. A wrong code, an expired code and a missing scope all look the
// same to the caller.
var ErrCodeNotFound = errors.New("portal: no approver matches code")

// GenerateCode returns a random code of the requested length, drawn from
// the digit-only or alphanumeric charset.
func GenerateCode(size int, numericOnly bool) (string, error) {
	charset := alphanumericCharset
	if numericOnly {
		charset = numericCharset
	}

	code := make([]byte, size)
	max := big.NewInt(int64(len(charset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}

// ValidityFrom computes a code expiry of midnight `days` days after now.
// Zero days clears the expiry entirely (permanent code), it does not set it
// to "now".
func ValidityFrom(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	t := now.AddDate(0, 0, days)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CodeService issues and validates time-limited approval codes. Only the
// bcrypt hash of a code is ever stored; the plaintext is returned exactly
// once from Issue.
type CodeService struct {
	store  storage.Storage
	logger *slog.Logger
	now    func() time.Time
}

// NewCodeService creates a code service backed by the given store.
func NewCodeService(store storage.Storage, logger *slog.Logger) *CodeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeService{store: store, logger: logger, now: time.Now}
}

// Issue generates a fresh code for the named approver, stores its hash and
// validity, and returns the plaintext. The previous code stops working
// immediately.
func (s *CodeService) Issue(ctx context.Context, username string, size int, numericOnly bool, validityDays int) (string, error) {
	approver, err := s.store.GetApproverByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	code, err := GenerateCode(size, numericOnly)
	if err != nil {
		return "", err
	}

	hash, err := storage.HashSecret(code)
	if err != nil {
		return "", err
	}

	approver.CodeHash = hash
	approver.Validity = ValidityFrom(s.now(), validityDays)

	if err := s.store.UpdateApprover(ctx, approver); err != nil {
		return "", err
	}

	s.logger.Info("approval code issued",
		"approver", username, "validity_days", validityDays)
	return code, nil
}

// Validate resolves a presented code to the owning approver's username.
// When scope is non-empty, only approvers whose approved types contain the
// scope are considered; expired codes are always skipped, scoped or not.
//
// This is a linear O(n) scan over all approvers by design: validity windows
// are short and approver populations are small. Index by expiry if approver
// counts ever grow large.
func (s *CodeService) Validate(ctx context.Context, code, scope string) (string, error) {
	approvers, err := s.store.ListApprovers(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	for _, a := range approvers {
		if scope != "" && !containsType(a.ApprovedTypes, scope) {
			continue
		}
		if !a.CodeUsableAt(now) {
			continue
		}
		if a.CodeHash == "" {
			continue
		}
		if storage.VerifySecret(code, a.CodeHash) == nil {
			return a.Username, nil
		}
	}

	return "", ErrCodeNotFound
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
