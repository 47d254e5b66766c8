package domain

import "time"

// OTPRecord is the single live one-time code for an email address.
type OTPRecord struct {
	Email    string
	Code     string
	IssuedAt time.Time
}

// Expired reports whether the record is older than ttl at now.
func (r OTPRecord) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.IssuedAt) > ttl
}
