package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/mailer"
	"github.com/aussiebroadwan/storefront/internal/auth/otp"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/go-playground/validator/v10"
)

const msgAllFieldsRequired = "All fields are required"

// TTLs are the access token lifetimes for each way of obtaining one, plus
// the refresh token lifetime.
type TTLs struct {
	RegisterAccess time.Duration
	LoginAccess    time.Duration
	OTPAccess      time.Duration
	RefreshAccess  time.Duration
	Refresh        time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		RegisterAccess: 15 * time.Minute,
		LoginAccess:    2 * time.Hour,
		OTPAccess:      time.Hour,
		RefreshAccess:  15 * time.Minute,
		Refresh:        jwtx.DefaultRefreshTokenTTL,
	}
}

// AuthService implements registration, login, the emailed OTP exchange and
// token refresh.
type AuthService struct {
	Store  store.Store
	Tokens *jwtx.Issuer
	Ledger *otp.Ledger
	Mailer mailer.Mailer
	TTLs   TTLs

	// Now defaults to time.Now.
	Now func() time.Time

	initOnce  sync.Once
	validate  *validator.Validate
	digestMu  sync.Mutex
	dummyHash string
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,shopemail"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=3"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SendOTPInput struct {
	Email string `json:"email" validate:"required,shopemail"`
}

type VerifyOTPInput struct {
	Email    string `json:"email" validate:"required"`
	OTP      string `json:"otp" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=3"`
}

func (s *AuthService) init() {
	s.initOnce.Do(func() {
		s.validate = newValidator()
		if _, err := s.referenceDigest(); err != nil {
			slog.Warn("login reference digest not built, retrying on demand", "err", err)
		}
	})
}

// referenceDigest is verified against when the email is unknown so both
// login failures cost one hash verification. Only a successful build is
// cached.
func (s *AuthService) referenceDigest() (string, error) {
	s.digestMu.Lock()
	defer s.digestMu.Unlock()

	if s.dummyHash == "" {
		h, err := cryptox.HashPassword(idx.New().String())
		if err != nil {
			return "", err
		}
		s.dummyHash = h
	}
	return s.dummyHash, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Register creates an unverified user and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Session, error) {
	s.init()
	in = RegisterInput{
		Email:    otp.NormalizeEmail(in.Email),
		Password: strings.TrimSpace(in.Password),
		Username: strings.TrimSpace(in.Username),
	}
	if err := check(s.validate, in, msgAllFieldsRequired); err != nil {
		return domain.Session{}, err
	}

	if err := s.ensureEmailFree(ctx, in.Email, "Email is already in use"); err != nil {
		return domain.Session{}, err
	}

	u, err := s.createUser(ctx, in.Email, in.Username, in.Password, false, "Email is already in use")
	if err != nil {
		return domain.Session{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID)
	return s.session(u, s.TTLs.RegisterAccess)
}

// Login exchanges an email and password for a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domain.Session, error) {
	s.init()
	log := slogx.FromContext(ctx)

	in = LoginInput{
		Email:    otp.NormalizeEmail(in.Email),
		Password: strings.TrimSpace(in.Password),
	}
	if err := check(s.validate, in, "Email and password are required"); err != nil {
		return domain.Session{}, err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		if digest, derr := s.referenceDigest(); derr != nil {
			log.Error("login reference digest unavailable", "err", derr)
			_, _ = cryptox.HashPassword(in.Password) // same cost as a verification
		} else {
			_ = cryptox.VerifyPassword(in.Password, digest)
		}
		log.Warn("login failed", "reason", "unknown email")
		return domain.Session{}, errInvalidCredentials()
	}
	if err != nil {
		return domain.Session{}, dependencyError("Internal server error", err)
	}

	if err := cryptox.VerifyPassword(in.Password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unusable", "user_id", u.ID, "err", err)
		} else {
			log.Warn("login failed", "reason", "password mismatch", "user_id", u.ID)
		}
		return domain.Session{}, errInvalidCredentials()
	}

	return s.session(u, s.TTLs.LoginAccess)
}

// Refresh mints a new access token from a valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", time.Time{}, &Error{Kind: ErrUnauthorized, Message: "Refresh token is required"}
	}

	claims, err := s.Tokens.Verify(refreshToken, jwtx.Refresh)
	if err != nil {
		slogx.FromContext(ctx).Warn("refresh token rejected", "err", err)
		return "", time.Time{}, errInvalidRefresh(err)
	}

	token, exp, err := s.Tokens.Issue(claims.Identity(), jwtx.Access, s.TTLs.RefreshAccess)
	if err != nil {
		return "", time.Time{}, dependencyError("Internal server error", err)
	}
	return token, exp, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email, conflictMsg string) error {
	_, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return conflictError(conflictMsg)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return dependencyError("Internal server error", err)
	}
}

func (s *AuthService) createUser(ctx context.Context, email, username, password string, verified bool, conflictMsg string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, dependencyError("Internal server error", err)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsVerified:   verified,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, conflictError(conflictMsg)
		}
		return domain.User{}, dependencyError("Internal server error", err)
	}
	return u, nil
}

func (s *AuthService) session(u domain.User, accessTTL time.Duration) (domain.Session, error) {
	sub := jwtx.Subject{ID: u.ID, Username: u.Username}

	access, accessExp, err := s.Tokens.Issue(sub, jwtx.Access, accessTTL)
	if err != nil {
		return domain.Session{}, dependencyError("Internal server error", err)
	}
	refresh, refreshExp, err := s.Tokens.Issue(sub, jwtx.Refresh, s.TTLs.Refresh)
	if err != nil {
		return domain.Session{}, dependencyError("Internal server error", err)
	}

	return domain.Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             u,
	}, nil
}
