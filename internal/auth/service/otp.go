package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/otp"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// SendOTP issues a code for email and mails it. If the mail cannot be sent
// the code is withdrawn so nothing claimable is left behind.
func (s *AuthService) SendOTP(ctx context.Context, in SendOTPInput) error {
	s.init()
	log := slogx.FromContext(ctx)

	in.Email = otp.NormalizeEmail(in.Email)
	if err := check(s.validate, in, "Email is required"); err != nil {
		return err
	}

	rec, err := s.Ledger.Issue(ctx, in.Email)
	if err != nil {
		return dependencyError("Failed to send OTP", err)
	}

	if err := s.Mailer.SendOTP(ctx, rec.Email, rec.Code); err != nil {
		if werr := s.Ledger.Withdraw(ctx, rec); werr != nil {
			log.Error("failed to withdraw undelivered otp", "err", werr)
		}
		return dependencyError("Failed to send OTP email", err)
	}

	log.Info("otp sent")
	return nil
}

// VerifyOTP consumes the emailed code and creates a verified user.
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (domain.Session, error) {
	s.init()

	in = VerifyOTPInput{
		Email:    otp.NormalizeEmail(in.Email),
		OTP:      strings.TrimSpace(in.OTP),
		Password: strings.TrimSpace(in.Password),
		Username: strings.TrimSpace(in.Username),
	}
	// Validate everything before touching the ledger so a bad password
	// does not burn the code.
	if err := check(s.validate, in, msgAllFieldsRequired); err != nil {
		return domain.Session{}, err
	}

	if err := s.Ledger.Verify(ctx, in.Email, in.OTP); err != nil {
		switch {
		case errors.Is(err, otp.ErrNotFound):
			return domain.Session{}, notFoundError("OTP not found for this email", err)
		case errors.Is(err, otp.ErrExpired):
			return domain.Session{}, &Error{Kind: ErrValidation, Message: "OTP has expired", Err: err}
		case errors.Is(err, otp.ErrMismatch):
			return domain.Session{}, &Error{Kind: ErrValidation, Message: "Invalid OTP", Err: err}
		default:
			return domain.Session{}, dependencyError("Failed to verify OTP", err)
		}
	}

	// The email may have been registered since the code was sent.
	if err := s.ensureEmailFree(ctx, in.Email, "User already exists"); err != nil {
		return domain.Session{}, err
	}

	u, err := s.createUser(ctx, in.Email, in.Username, in.Password, true, "User already exists")
	if err != nil {
		return domain.Session{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID, "verified", true)
	return s.session(u, s.TTLs.OTPAccess)
}
