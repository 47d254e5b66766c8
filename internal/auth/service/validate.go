package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`)

// newValidator returns a validator with the storefront's email rule
// registered as "shopemail".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("shopemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidEmail reports whether email has the accepted shape after trimming.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// fieldMessages maps a field and failed tag to the message shown to clients.
var fieldMessages = map[string]map[string]string{
	"Email":    {"shopemail": "Invalid email format"},
	"Username": {"min": "Username must be at least 3 characters"},
	"Password": {"min": "Password must be at least 6 characters"},
}

// check runs struct validation and converts the first failure to a
// Validation error with a client-facing message. Missing fields report
// requiredMsg.
func check(v *validator.Validate, in any, requiredMsg string) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: ErrValidation, Message: "invalid request", Err: err}
	}

	// Missing fields take precedence so the message matches what the user
	// has to fix first.
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &Error{Kind: ErrValidation, Message: requiredMsg, Err: err}
		}
	}

	fe := verrs[0]
	if msg, ok := fieldMessages[fe.StructField()][fe.Tag()]; ok {
		return &Error{Kind: ErrValidation, Message: msg, Err: err}
	}
	return &Error{Kind: ErrValidation, Message: "invalid " + strings.ToLower(fe.Field()), Err: err}
}
