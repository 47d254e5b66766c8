package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService
	Cookie      CookieConfig
}

// HandleRegister creates an account.
//
//	@Summary		Register
//	@Description	Creates an unverified account and signs it in. The refresh token is set as the HttpOnly refreshToken cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"email, password, username"
//	@Success		201		{object}	authsdk.TokenResponse	"access token (15 minutes)"
//	@Failure		400		{object}	authsdk.MessageResponse	"missing or malformed fields"
//	@Failure		409		{object}	authsdk.MessageResponse	"email already in use"
//	@Failure		429		{object}	authsdk.MessageResponse	"rate limited"
//	@Failure		500		{object}	authsdk.MessageResponse	"internal server error"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sess, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSession(w, h.Cookie, http.StatusCreated, "User created successfully", sess)
}

// HandleLogin signs in with email and password.
//
//	@Summary		Login
//	@Description	Exchanges email and password for a 2 hour access token and sets the refreshToken cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.TokenResponse	"access token (2 hours)"
//	@Failure		400		{object}	authsdk.MessageResponse	"missing fields"
//	@Failure		401		{object}	authsdk.MessageResponse	"incorrect email or password"
//	@Failure		429		{object}	authsdk.MessageResponse	"rate limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sess, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSession(w, h.Cookie, http.StatusOK, "Login successful", sess)
}

// HandleRefresh mints a new access token.
//
//	@Summary		Refresh access token
//	@Description	Reads the refresh token from the refreshToken cookie, or from the body when no cookie is sent, and returns a 15 minute access token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	false	"refreshToken (cookie preferred)"
//	@Success		200		{object}	authsdk.TokenResponse	"new access token"
//	@Failure		401		{object}	authsdk.MessageResponse	"missing, invalid or expired refresh token"
//	@Router			/api/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromCookie(r)
	if token == "" {
		var req authsdk.RefreshRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
		token = req.RefreshToken
	}

	access, exp, err := h.AuthService.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:     access,
		ExpiresIn: secondsUntil(exp),
	})
}

// HandleLogout clears the refresh cookie.
//
//	@Summary		Logout
//	@Description	Clears the refreshToken cookie. Issued access tokens stay valid until they expire.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse	"Logged out successfully"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookie.Clear(w)
	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

func writeSession(w http.ResponseWriter, c CookieConfig, status int, msg string, sess domain.Session) {
	c.Set(w, sess.RefreshToken)
	httpx.WriteJSON(w, status, authsdk.TokenResponse{
		Message:   msg,
		Token:     sess.AccessToken,
		ExpiresIn: secondsUntil(sess.AccessExpiresAt),
	})
}

func secondsUntil(t time.Time) int64 {
	return max(int64(time.Until(t).Round(time.Second)/time.Second), 0)
}
