package otp

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
)

// StoreBackend keeps records in the otps table of the credential store.
type StoreBackend struct {
	s store.Store
}

var (
	_ Backend = (*StoreBackend)(nil)
	_ Purger  = (*StoreBackend)(nil)
)

func NewStoreBackend(s store.Store) *StoreBackend {
	return &StoreBackend{s: s}
}

func (b *StoreBackend) Save(ctx context.Context, rec domain.OTPRecord, _ time.Duration) error {
	return b.s.OTPs().UpsertOTP(ctx, rec)
}

func (b *StoreBackend) Load(ctx context.Context, email string) (domain.OTPRecord, error) {
	rec, err := b.s.OTPs().GetOTP(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OTPRecord{}, ErrNotFound
	}
	return rec, err
}

func (b *StoreBackend) CompareAndDelete(ctx context.Context, rec domain.OTPRecord) (bool, error) {
	return b.s.OTPs().DeleteOTPIfMatch(ctx, rec)
}

func (b *StoreBackend) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return b.s.OTPs().DeleteOTPsIssuedBefore(ctx, cutoff)
}
