package jwtx

import "errors"

// Verifier validates a token of the given kind and returns its claims.
type Verifier interface {
	Verify(token string, kind Kind) (Claims, error)
}

var (
	// ErrExpired means the signature checked out but the token is past exp.
	// Callers may suggest a refresh or a fresh login.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrInvalid covers everything else: bad signature, malformed input,
	// wrong algorithm, wrong issuer or wrong kind. Never trust any part of
	// a token that failed with ErrInvalid.
	ErrInvalid = errors.New("jwtx: invalid token")

	ErrEmptySecret  = errors.New("jwtx: signing secret must not be empty")
	ErrSharedSecret = errors.New("jwtx: access and refresh secrets must differ")
	ErrBadTTL       = errors.New("jwtx: token lifetime must be positive")
)
