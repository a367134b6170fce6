package storage

import "time"

// GuestStatus is the lifecycle state of a guest connection record.
type GuestStatus string

// Lifecycle states. Pending is the initial state; Rejected and Expired are
// terminal. The only transitions are Pending -> Approved, Pending -> Rejected
// and Approved -> Expired.
const (
	StatusPending  GuestStatus = "Pending"
	StatusApproved GuestStatus = "Approved"
	StatusRejected GuestStatus = "Rejected"
	StatusExpired  GuestStatus = "Expired"
)

// Valid reports whether s is one of the four lifecycle states.
func (s GuestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether there is no transition out of s.
func (s GuestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusExpired
}

// Guest is a persisted device/connection record tracked through the
// lifecycle state machine. Identity fields and Approver are immutable after
// creation; Hostname and the byte counters are owned by the controller and
// copied forward by reconciliation.
type Guest struct {
	ID string

	FullName string
	Email    string
	Phone    string
	Fields   map[string]string // free-form extra form fields

	MAC    string
	Site   string
	Status GuestStatus

	// Approver is the username of whoever authorized the connection, or
	// "default" for self-service connects.
	Approver string

	// TimeConnection is the granted duration in minutes.
	TimeConnection int
	StartTime      time.Time

	Hostname string
	RxBytes  int64
	TxBytes  int64
}

// Credential distinguishes locally stored password hashes from
// directory-backed identities, which have no local secret and must be
// validated against the directory service.
type Credential struct {
	hash string
}

// LocalCredential returns a credential holding a bcrypt hash.
func LocalCredential(hash string) Credential {
	return Credential{hash: hash}
}

// DirectoryCredential returns a credential for a directory-backed record.
func DirectoryCredential() Credential {
	return Credential{}
}

// DirectoryBacked reports whether the record has no local secret.
func (c Credential) DirectoryBacked() bool {
	return c.hash == ""
}

// Hash returns the stored bcrypt hash, empty for directory-backed records.
func (c Credential) Hash() string {
	return c.hash
}

// Approver is an identity authorized to mint approval codes.
type Approver struct {
	ID       string
	Username string
	Email    string

	Credential Credential

	// CodeHash is the bcrypt hash of the current approval code. The
	// plaintext is never stored.
	CodeHash string

	// ApprovedTypes is the set of access classes this approver may
	// authorize. Empty means unscoped.
	ApprovedTypes []string

	// Validity is the expiry of the current code. The zero value means the
	// code never expires; a past value means the code is unusable.
	Validity time.Time
}

// CodeUsableAt reports whether the approver's code is usable at t. A zero
// validity is permanent; otherwise the validity must be strictly after t.
func (a *Approver) CodeUsableAt(t time.Time) bool {
	return a.Validity.IsZero() || a.Validity.After(t)
}

// Admin is an operator identity for the management API.
type Admin struct {
	ID       string
	Name     string
	Username string

	Credential Credential
}

// User is a self-service identity. Profile is the guest template applied
// when the user connects their own device.
type User struct {
	ID       string
	Username string
	Email    string

	Credential Credential

	Profile Guest
}
