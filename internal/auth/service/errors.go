package service

import (
	"errors"
	"fmt"
)

// Kinds of failure the auth flow reports. Every error returned by a service
// method wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrDependency   = errors.New("dependency failure")
)

// Error carries a client-safe Message alongside the internal cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func notFoundError(msg string, cause error) error {
	return &Error{Kind: ErrNotFound, Message: msg, Err: cause}
}

func dependencyError(msg string, cause error) error {
	return &Error{Kind: ErrDependency, Message: msg, Err: cause}
}

// errInvalidCredentials is the only error a failed login produces, whether
// the email is unknown or the password is wrong.
func errInvalidCredentials() error {
	return &Error{Kind: ErrUnauthorized, Message: "incorrect email or password"}
}

func errInvalidRefresh(cause error) error {
	return &Error{Kind: ErrUnauthorized, Message: "invalid or expired refresh token", Err: cause}
}

// Message returns the client-safe message of err, or fallback when err
// does not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
