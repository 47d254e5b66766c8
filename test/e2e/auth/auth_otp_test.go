package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestOTPSignUp requests a code, reads it from Redis and redeems it for a
// verified account.
func TestOTPSignUp(t *testing.T) {
	s := setupStack(t, relaxedLimits)
	ctx := t.Context()
	client := authsdk.NewSDKClient(s.BaseURL)

	require.NoError(t, client.SendOTP(ctx, "Mia@Example.com"))
	code := s.issuedCode(t, "mia@example.com")

	ttl, err := s.Redis.TTL(ctx, "otp:mia@example.com").Result()
	require.NoError(t, err)
	require.Positive(t, ttl, "codes must expire in Redis")

	sess, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Email:    "mia@example.com",
		OTP:      code,
		Password: testPassword,
		Username: "mia",
	})
	require.NoError(t, err)
	require.NotEmpty(t, client.RefreshToken())

	me, err := sess.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.Verified)

	// The code was consumed.
	exists, err := s.Redis.Exists(ctx, "otp:mia@example.com").Result()
	require.NoError(t, err)
	require.Zero(t, exists)

	_, err = client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Email: "mia@example.com", OTP: code, Password: testPassword, Username: "mia",
	})
	assertStatus(t, err, http.StatusBadRequest, "OTP not found for this email")
}

// TestOTPResendReplacesCode checks only the latest code is accepted.
func TestOTPResendReplacesCode(t *testing.T) {
	s := setupStack(t, relaxedLimits)
	ctx := t.Context()
	client := authsdk.NewSDKClient(s.BaseURL)

	require.NoError(t, client.SendOTP(ctx, "noah@example.com"))
	first := s.issuedCode(t, "noah@example.com")

	require.NoError(t, client.SendOTP(ctx, "noah@example.com"))
	second := s.issuedCode(t, "noah@example.com")

	if first != second {
		_, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
			Email: "noah@example.com", OTP: first, Password: testPassword, Username: "noah",
		})
		assertStatus(t, err, http.StatusBadRequest, "Invalid OTP")
	}

	_, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Email: "noah@example.com", OTP: second, Password: testPassword, Username: "noah",
	})
	require.NoError(t, err)
}

// TestOTPForRegisteredEmail checks a code cannot create a second account
// for an address that registered in the meantime.
func TestOTPForRegisteredEmail(t *testing.T) {
	s := setupStack(t, relaxedLimits)
	ctx := t.Context()
	client := authsdk.NewSDKClient(s.BaseURL)

	require.NoError(t, client.SendOTP(ctx, "olive@example.com"))
	code := s.issuedCode(t, "olive@example.com")

	register(t, authsdk.NewSDKClient(s.BaseURL), "olive@example.com", "olive")

	_, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Email: "olive@example.com", OTP: code, Password: testPassword, Username: "olive",
	})
	assertStatus(t, err, http.StatusConflict, "User already exists")
}
