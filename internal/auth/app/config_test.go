package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/stretchr/testify/require"
)

// baseEnv isolates the test from the host environment and from any .env
// file, then sets the minimum a valid configuration needs.
func baseEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())

	for _, k := range []string{
		"CONFIG_FILE", "ENV", "PORT", "OTP_BACKEND", "DATABASE_DRIVER", "DATABASE_URL",
		"ACCESS_TOKEN_TTL", "LOGIN_ACCESS_TOKEN_TTL", "OTP_ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
		"OTP_TTL", "MAIL_FROM", "CORS_ALLOWED_ORIGINS", "HOUSEKEEPING_INTERVAL",
		"RATELIMIT_STRICT_REQUESTS", "RATELIMIT_STRICT_WINDOW_SEC", "RATELIMIT_STRICT_BURST",
	} {
		t.Setenv(k, "")
	}

	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("MAIL_DRIVER", "smtp")
	t.Setenv("EMAIL_USER", "shop@example.com")
	t.Setenv("EMAIL_PASS", "app-password")
}

func TestLoadConfigDefaults(t *testing.T) {
	baseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "storefront-auth", cfg.Issuer)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "dev", cfg.Env)
	require.False(t, cfg.IsProduction())

	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 2*time.Hour, cfg.LoginAccessTTL)
	require.Equal(t, time.Hour, cfg.OTPAccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)

	require.Equal(t, "memory", cfg.OTPBackend)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	require.Equal(t, 587, cfg.SMTPPort)
	require.Equal(t, "shop@example.com", cfg.MailFrom)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, httpx.DefaultRateLimitProfiles(), cfg.RateLimits)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	baseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("EMAIL_PASS", "")

	_, err := LoadConfig()
	require.Error(t, err)
	require.ErrorContains(t, err, "JWT_SECRET")
	require.ErrorContains(t, err, "JWT_REFRESH_SECRET")
	require.ErrorContains(t, err, "EMAIL_PASS")
}

func TestLoadConfigOverrides(t *testing.T) {
	baseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("OTP_TTL", "10") // bare integers are minutes
	t.Setenv("REFRESH_TOKEN_TTL", "24h")
	t.Setenv("OTP_BACKEND", "Redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "3")
	t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "30")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 30*time.Minute, cfg.AccessTTL)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL)
	require.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, "redis", cfg.OTPBackend)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	require.Equal(t, 9090, cfg.Port)

	require.Equal(t, 3, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Strict.Window)
	require.Equal(t, httpx.DefaultRateLimitProfiles().Strict.Burst, cfg.RateLimits.Strict.Burst)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"OTP_TTL": "soon"}, "OTP_TTL"},
		{"bad port", map[string]string{"PORT": "eighty"}, "PORT"},
		{"shared secret", map[string]string{"JWT_REFRESH_SECRET": "access-secret"}, "must differ"},
		{"unknown otp backend", map[string]string{"OTP_BACKEND": "memcached"}, "OTP_BACKEND"},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"log mailer in production", map[string]string{"MAIL_DRIVER": "log", "ENV": "production"}, "not allowed in production"},
		{"zero rate limit", map[string]string{"RATELIMIT_STRICT_BURST": "0"}, "RATELIMIT_STRICT_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfigLogMailerOutsideProduction(t *testing.T) {
	baseEnv(t)
	t.Setenv("MAIL_DRIVER", "log")
	t.Setenv("EMAIL_USER", "")
	t.Setenv("EMAIL_PASS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "log", cfg.MailDriver)
}

func TestLoadConfigDotEnv(t *testing.T) {
	baseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	dotenv := "JWT_SECRET=file-access\nJWT_REFRESH_SECRET=file-refresh\nOTP_TTL=2m\n"
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte(dotenv), 0o600))

	// The environment wins over the file.
	t.Setenv("OTP_TTL", "3m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "file-access", cfg.JWTSecret)
	require.Equal(t, "file-refresh", cfg.JWTRefreshSecret)
	require.Equal(t, 3*time.Minute, cfg.OTPTTL)
}
