package storage

import (
	"context"
)

// Storage defines the persistence operations consumed by the portal service
// and the reconciliation loops. Records are keyed by an opaque string
// identifier assigned at creation. Implementations must be safe for
// concurrent independent record operations; there are no cross-record
// transactions.
type Storage interface {
	// Guest operations
	ListGuests(ctx context.Context) ([]*Guest, error)
	GetGuest(ctx context.Context, id string) (*Guest, error)
	SaveGuest(ctx context.Context, g *Guest) error
	UpdateGuest(ctx context.Context, g *Guest) error
	DeleteGuest(ctx context.Context, id string) error

	// Approver operations
	ListApprovers(ctx context.Context) ([]*Approver, error)
	GetApproverByUsername(ctx context.Context, username string) (*Approver, error)
	SaveApprover(ctx context.Context, a *Approver) error
	UpdateApprover(ctx context.Context, a *Approver) error
	DeleteApprover(ctx context.Context, id string) error

	// Admin operations
	ListAdmins(ctx context.Context) ([]*Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)
	SaveAdmin(ctx context.Context, a *Admin) error
	DeleteAdmin(ctx context.Context, id string) error

	// User operations
	ListUsers(ctx context.Context) ([]*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
