package sqlite

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

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *queries) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *queries) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const createUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *queries) CreateUser(ctx context.Context, u domain.User) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified, string(u.Role), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return err
}

const upsertOTP = `INSERT INTO otps (email, code, issued_at) VALUES (?, ?, ?)
ON CONFLICT (email) DO UPDATE SET code = excluded.code, issued_at = excluded.issued_at`

func (q *queries) UpsertOTP(ctx context.Context, rec domain.OTPRecord) error {
	_, err := q.db.ExecContext(ctx, upsertOTP, rec.Email, rec.Code, rec.IssuedAt.UnixNano())
	return err
}

const getOTP = `SELECT email, code, issued_at FROM otps WHERE email = ?`

func (q *queries) GetOTP(ctx context.Context, email string) (domain.OTPRecord, error) {
	var (
		rec      domain.OTPRecord
		issuedAt int64
	)
	if err := q.db.QueryRowContext(ctx, getOTP, email).Scan(&rec.Email, &rec.Code, &issuedAt); err != nil {
		return domain.OTPRecord{}, err
	}
	rec.IssuedAt = time.Unix(0, issuedAt)
	return rec, nil
}

const deleteOTPIfMatch = `DELETE FROM otps WHERE email = ? AND code = ? AND issued_at = ?`

func (q *queries) DeleteOTPIfMatch(ctx context.Context, rec domain.OTPRecord) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOTPIfMatch, rec.Email, rec.Code, rec.IssuedAt.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteOTPsIssuedBefore = `DELETE FROM otps WHERE issued_at < ?`

func (q *queries) DeleteOTPsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOTPsIssuedBefore, cutoff.UnixNano())
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
