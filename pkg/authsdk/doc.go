/*
Package authsdk is a Go client for the storefront authentication service.

SDKClient covers the public endpoints. It keeps a cookie jar, so the
refreshToken cookie set by register, login and verify-otp is replayed
automatically on refresh and cleared on logout:

	client := authsdk.NewSDKClient("http://localhost:8080")

	if err := client.SendOTP(ctx, "shopper@example.com"); err != nil { ... }
	session, err := client.VerifyOTP(ctx, authsdk.VerifyOTPRequest{
		Email: "shopper@example.com", OTP: code, Password: pw, Username: "shopper",
	})

A Session wraps an access token and refreshes it through the cookie when it
expires:

	me, err := session.Me(ctx)

Server errors come back as *APIError carrying the HTTP status and the
{message} body.
*/
package authsdk
