package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories hang off it so a Tx can expose exactly the
// same surface and nested transactions are impossible to express.
type Store interface {
	Users() Users
	OTPs() OTPs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. It returns ErrAlreadyExists when the
	// email is taken.
	CreateUser(ctx context.Context, u domain.User) error
}

// OTPs backs the database flavour of the OTP ledger. There is at most one
// row per email.
type OTPs interface {
	// UpsertOTP replaces any existing record for rec.Email.
	UpsertOTP(ctx context.Context, rec domain.OTPRecord) error

	GetOTP(ctx context.Context, email string) (domain.OTPRecord, error)

	// DeleteOTPIfMatch deletes the row only if it still holds exactly rec.
	// It reports whether a row was removed.
	DeleteOTPIfMatch(ctx context.Context, rec domain.OTPRecord) (bool, error)

	// DeleteOTPsIssuedBefore removes every record issued before cutoff and
	// returns how many were removed.
	DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
