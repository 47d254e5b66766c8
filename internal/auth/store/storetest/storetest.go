// Package storetest holds the behaviour every store driver must share.
// Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Run exercises s. Emails are unique per call so a shared database can be
// reused across runs.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	prefix := idx.New().String()

	t.Run("users", func(t *testing.T) { testUsers(t, s, prefix) })
	t.Run("otps", func(t *testing.T) { testOTPs(t, s, prefix) })
	t.Run("with tx", func(t *testing.T) { testWithTx(t, s, prefix) })
}

func NewUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.User{
		ID:           idx.New().String(),
		Username:     "shopper",
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func email(prefix, name string) string {
	return name + "." + prefix + "@example.com"
}

func testUsers(t *testing.T, s store.Store, prefix string) {
	ctx := context.Background()

	u := NewUser(email(prefix, "alice"))
	u.IsVerified = true
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, u.Username, got.Username)
	require.Equal(t, u.PasswordHash, got.PasswordHash)
	require.True(t, got.IsVerified)
	require.Equal(t, domain.RoleUser, got.Role)
	require.True(t, u.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", u.CreatedAt, got.CreatedAt)

	got, err = s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = s.Users().GetUserByEmail(ctx, email(prefix, "nobody"))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().GetUserByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Users().CreateUser(ctx, NewUser(u.Email))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	nu := NewUser(email(prefix, "bob"))
	nu.Role = ""
	require.NoError(t, s.Users().CreateUser(ctx, nu))
	got, err = s.Users().GetUserByID(ctx, nu.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, got.Role)
	require.False(t, got.IsVerified)
}

func testOTPs(t *testing.T, s store.Store, prefix string) {
	ctx := context.Background()
	otps := s.OTPs()

	issued := time.Now()
	rec := domain.OTPRecord{Email: email(prefix, "carol"), Code: "123456", IssuedAt: issued}
	require.NoError(t, otps.UpsertOTP(ctx, rec))

	got, err := otps.GetOTP(ctx, rec.Email)
	require.NoError(t, err)
	require.Equal(t, rec.Code, got.Code)
	require.True(t, issued.Equal(got.IssuedAt))

	newer := domain.OTPRecord{Email: rec.Email, Code: "654321", IssuedAt: issued.Add(time.Second)}
	require.NoError(t, otps.UpsertOTP(ctx, newer))

	ok, err := otps.DeleteOTPIfMatch(ctx, rec)
	require.NoError(t, err)
	require.False(t, ok, "stale record must not delete the replacement")

	ok, err = otps.DeleteOTPIfMatch(ctx, newer)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = otps.GetOTP(ctx, rec.Email)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Far in the past so records from other runs never interfere.
	ancient := time.Unix(0, 0).Add(time.Duration(len(prefix)) * time.Hour)
	old := domain.OTPRecord{Email: email(prefix, "old"), Code: "111111", IssuedAt: ancient}
	fresh := domain.OTPRecord{Email: email(prefix, "fresh"), Code: "222222", IssuedAt: issued}
	require.NoError(t, otps.UpsertOTP(ctx, old))
	require.NoError(t, otps.UpsertOTP(ctx, fresh))

	n, err := otps.DeleteOTPsIssuedBefore(ctx, issued.Add(-time.Minute))
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	_, err = otps.GetOTP(ctx, old.Email)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = otps.GetOTP(ctx, fresh.Email)
	require.NoError(t, err)
}

func testWithTx(t *testing.T, s store.Store, prefix string) {
	ctx := context.Background()
	boom := errors.New("boom")

	u := NewUser(email(prefix, "dave"))
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back insert must not be visible")

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, u)
	}))
	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}
