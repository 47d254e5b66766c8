package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
)

// CookieConfig describes the refresh token cookie. It is always HttpOnly,
// SameSite=Strict and scoped to "/".
type CookieConfig struct {
	// Secure restricts the cookie to HTTPS. Enabled in production.
	Secure bool

	// MaxAge should match the refresh token lifetime.
	MaxAge time.Duration
}

func (c CookieConfig) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshTokenFromCookie(r *http.Request) string {
	ck, err := r.Cookie(authsdk.RefreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
