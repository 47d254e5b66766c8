package domain

import "time"

// Session is what a successful register, login or OTP verification hands
// back: an access token for the Authorization header and a refresh token
// for the cookie.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             User
}
