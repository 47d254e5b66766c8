package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries {
	return &queries{db: db}
}

const userColumns = `id, username, email, password_hash, is_verified, role, created_at, updated_at`

func (q *queries) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (q *queries) CreateUser(ctx context.Context, u domain.User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified, string(u.Role), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return err
}

func (q *queries) UpsertOTP(ctx context.Context, rec domain.OTPRecord) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO otps (email, code, issued_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, issued_at = EXCLUDED.issued_at`,
		rec.Email, rec.Code, rec.IssuedAt.UnixNano(),
	)
	return err
}

func (q *queries) GetOTP(ctx context.Context, email string) (domain.OTPRecord, error) {
	var (
		rec      domain.OTPRecord
		issuedAt int64
	)
	err := q.db.QueryRowContext(ctx, `SELECT email, code, issued_at FROM otps WHERE email = $1`, email).
		Scan(&rec.Email, &rec.Code, &issuedAt)
	if err != nil {
		return domain.OTPRecord{}, err
	}
	rec.IssuedAt = time.Unix(0, issuedAt)
	return rec, nil
}

func (q *queries) DeleteOTPIfMatch(ctx context.Context, rec domain.OTPRecord) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM otps WHERE email = $1 AND code = $2 AND issued_at = $3`,
		rec.Email, rec.Code, rec.IssuedAt.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *queries) DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM otps WHERE issued_at < $1`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}
