package http

import (
	"net/http"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

type OTPHandler struct {
	AuthService *service.AuthService
	Cookie      CookieConfig
}

// HandleSend emails a one-time code.
//
//	@Summary		Send OTP
//	@Description	Emails a 6 digit code valid for 5 minutes. A new request replaces any earlier code for the same email.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SendOTPRequest	true	"email"
//	@Success		200		{object}	authsdk.MessageResponse	"OTP sent successfully"
//	@Failure		400		{object}	authsdk.MessageResponse	"missing or malformed email"
//	@Failure		429		{object}	authsdk.MessageResponse	"rate limited"
//	@Failure		500		{object}	authsdk.MessageResponse	"email could not be sent"
//	@Router			/api/otp/send-otp [post].
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SendOTPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.AuthService.SendOTP(r.Context(), service.SendOTPInput{Email: req.Email}); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "OTP sent successfully")
}

// HandleVerify redeems a code and creates a verified account.
//
//	@Summary		Verify OTP
//	@Description	Consumes the emailed code, creates a verified account, and returns a 1 hour access token. Sets the refreshToken cookie.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.VerifyOTPRequest	true	"email, otp, password, username"
//	@Success		201		{object}	authsdk.TokenResponse		"access token (1 hour)"
//	@Failure		400		{object}	authsdk.MessageResponse		"missing fields, unknown, expired or wrong code"
//	@Failure		409		{object}	authsdk.MessageResponse		"user already exists"
//	@Failure		429		{object}	authsdk.MessageResponse		"rate limited"
//	@Router			/api/otp/verify-otp [post].
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sess, err := h.AuthService.VerifyOTP(r.Context(), service.VerifyOTPInput{
		Email:    req.Email,
		OTP:      req.OTP,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSession(w, h.Cookie, http.StatusCreated, "User created successfully", sess)
}
