package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default lifetimes for the two token kinds. Flows that want a different
// access lifetime (login, OTP sign-up) pass it to Issue explicitly.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Subject identifies who a token was issued to. It is the only user data a
// token carries.
type Subject struct {
	ID       string
	Username string
}

// Claims is the payload shared by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is "access" or "refresh". A token is only ever accepted as the
	// kind it was minted for.
	Kind string `json:"kind"`

	Username string `json:"username,omitempty"`
}

// Identity returns who the token was issued to.
func (c Claims) Identity() Subject {
	return Subject{ID: c.RegisteredClaims.Subject, Username: c.Username}
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c Claims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

func newClaims(sub Subject, kind Kind, issuer string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind:     kind.String(),
		Username: sub.Username,
	}
}
