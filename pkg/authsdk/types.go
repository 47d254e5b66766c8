package authsdk

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" example:"shopper@example.com"`
	Password string `json:"password" example:"hunter22"`
	Username string `json:"username" example:"shopper"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"shopper@example.com"`
	Password string `json:"password" example:"hunter22"`
}

// RefreshRequest is the optional body of POST /api/auth/refresh-token.
// The refreshToken cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SendOTPRequest is the body of POST /api/otp/send-otp.
type SendOTPRequest struct {
	Email string `json:"email" example:"shopper@example.com"`
}

// VerifyOTPRequest is the body of POST /api/otp/verify-otp.
type VerifyOTPRequest struct {
	Email    string `json:"email" example:"shopper@example.com"`
	OTP      string `json:"otp" example:"482913"`
	Password string `json:"password" example:"hunter22"`
	Username string `json:"username" example:"shopper"`
}

// TokenResponse carries a fresh access token.
type TokenResponse struct {
	Message   string `json:"message,omitempty" example:"Login successful"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in,omitempty" example:"7200"` // seconds
}

// MessageResponse is the body of every error and of bodiless successes.
type MessageResponse struct {
	Message string `json:"message" example:"Logged out successfully"`
}

// UserResponse is the body of GET /api/auth/me.
type UserResponse struct {
	ID       string `json:"id" example:"01J8Z3V7XK2M4Q6R8T0W2Y4A6C"`
	Username string `json:"username" example:"shopper"`
	Email    string `json:"email" example:"shopper@example.com"`
	Role     string `json:"role" example:"user"`
	Verified bool   `json:"isVerified"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports dependency status on /readyz.
type HealthChecks struct {
	Database string `json:"database" example:"ok"`
	OTPStore string `json:"otp_store,omitempty" example:"ok"`
}
