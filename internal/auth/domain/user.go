package domain

import "time"

// Role gates what a user may do in the storefront.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string
	Username     string
	Email        string // trimmed and lowercased
	PasswordHash string // argon2id PHC string, or a legacy bcrypt digest
	IsVerified   bool   // set only for users created through the OTP flow
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
