// Package otp keeps the one-time codes emailed during sign-up. Each email
// has at most one live code; verifying it consumes it exactly once.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 5 * time.Minute

	// CodeDigits is the length of every issued code.
	CodeDigits = 6
)

var (
	ErrNotFound = errors.New("otp: no code issued for this email")
	ErrExpired  = errors.New("otp: code expired")
	ErrMismatch = errors.New("otp: code does not match")
)

// Backend stores at most one record per email. Implementations must make
// CompareAndDelete atomic per email.
type Backend interface {
	// Save replaces any record for rec.Email. retain is how long the backend
	// should physically keep it; expiry itself is decided by the Ledger.
	Save(ctx context.Context, rec domain.OTPRecord, retain time.Duration) error

	// Load returns ErrNotFound when there is no record.
	Load(ctx context.Context, email string) (domain.OTPRecord, error)

	// CompareAndDelete removes the record only if it is still exactly rec.
	CompareAndDelete(ctx context.Context, rec domain.OTPRecord) (bool, error)
}

// Purger is implemented by backends that cannot expire records on their own.
type Purger interface {
	// Purge removes records issued before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ledger issues and verifies codes on top of a Backend.
type Ledger struct {
	Backend Backend

	// TTL defaults to DefaultTTL.
	TTL time.Duration

	// Retention is how long records are kept after issue so a late verify
	// reports ErrExpired instead of ErrNotFound. Defaults to 2*TTL.
	Retention time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func NewLedger(b Backend, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		Backend:   b,
		TTL:       ttl,
		Retention: 2 * ttl,
		Now:       time.Now,
	}
}

// NormalizeEmail trims and lowercases an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Ledger) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultTTL
	}
	return l.TTL
}

func (l *Ledger) retention() time.Duration {
	if l.Retention < l.ttl() {
		return 2 * l.ttl()
	}
	return l.Retention
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// Issue generates a fresh code for email, replacing any earlier one, and
// returns the stored record.
func (l *Ledger) Issue(ctx context.Context, email string) (domain.OTPRecord, error) {
	code, err := cryptox.GenerateNumericCode(CodeDigits)
	if err != nil {
		return domain.OTPRecord{}, fmt.Errorf("otp: generate code: %w", err)
	}

	rec := domain.OTPRecord{
		Email:    NormalizeEmail(email),
		Code:     code,
		IssuedAt: l.now(),
	}
	if err := l.Backend.Save(ctx, rec, l.retention()); err != nil {
		return domain.OTPRecord{}, fmt.Errorf("otp: save: %w", err)
	}
	return rec, nil
}

// Withdraw deletes rec if it is still the live record for its email.
func (l *Ledger) Withdraw(ctx context.Context, rec domain.OTPRecord) error {
	if _, err := l.Backend.CompareAndDelete(ctx, rec); err != nil {
		return fmt.Errorf("otp: withdraw: %w", err)
	}
	return nil
}

// Verify consumes the live code for email if code matches it. A wrong code
// leaves the record in place so the user can retry.
func (l *Ledger) Verify(ctx context.Context, email, code string) error {
	rec, err := l.Backend.Load(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("otp: load: %w", err)
	}

	if rec.Expired(l.now(), l.ttl()) {
		if _, err := l.Backend.CompareAndDelete(ctx, rec); err != nil {
			return fmt.Errorf("otp: delete expired: %w", err)
		}
		return ErrExpired
	}

	if !codesEqual(rec.Code, code) {
		return ErrMismatch
	}

	ok, err := l.Backend.CompareAndDelete(ctx, rec)
	if err != nil {
		return fmt.Errorf("otp: consume: %w", err)
	}
	if !ok {
		// Another verify or a re-issue got there first.
		return ErrNotFound
	}
	return nil
}

// codesEqual compares codes as integers so "012345" style client padding
// differences do not matter. Anything non-numeric never matches.
func codesEqual(stored, given string) bool {
	want, err := strconv.Atoi(stored)
	if err != nil {
		return false
	}
	got, err := strconv.Atoi(strings.TrimSpace(given))
	if err != nil {
		return false
	}
	return want == got
}
