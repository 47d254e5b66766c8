package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account and returns a session for it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return c.tokenCall(ctx, "/api/auth/register", req, http.StatusCreated)
}

// Login signs in with email and password.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	return c.tokenCall(ctx, "/api/auth/login", req, http.StatusOK)
}

// SendOTP asks the service to email a one-time code to email.
func (c *SDKClient) SendOTP(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/otp/send-otp", SendOTPRequest{Email: email}, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// VerifyOTP redeems an emailed code and creates a verified account.
func (c *SDKClient) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	return c.tokenCall(ctx, "/api/otp/verify-otp", req, http.StatusCreated)
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *SDKClient) Refresh(ctx context.Context) (*TokenResponse, error) {
	return c.refresh(ctx, nil)
}

// RefreshWithToken sends refreshToken in the body instead of the cookie.
func (c *SDKClient) RefreshWithToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.refresh(ctx, RefreshRequest{RefreshToken: refreshToken})
}

func (c *SDKClient) refresh(ctx context.Context, body any) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh-token", body, nil)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout clears the refresh cookie.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Me returns the user identified by accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*UserResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var u UserResponse
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *SDKClient) tokenCall(ctx context.Context, path string, body any, status int) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, status); err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}
