package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

type otpsRepo struct {
	q *queries
}

func (r *otpsRepo) UpsertOTP(ctx context.Context, rec domain.OTPRecord) error {
	return r.q.UpsertOTP(ctx, rec)
}

func (r *otpsRepo) GetOTP(ctx context.Context, email string) (domain.OTPRecord, error) {
	rec, err := r.q.GetOTP(ctx, email)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *otpsRepo) DeleteOTPIfMatch(ctx context.Context, rec domain.OTPRecord) (bool, error) {
	n, err := r.q.DeleteOTPIfMatch(ctx, rec)
	return n == 1, err
}

func (r *otpsRepo) DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.DeleteOTPsIssuedBefore(ctx, cutoff)
}
