package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/spf13/viper"
)

type Config struct {
	Issuer           string // Optional: iss claim on every token (default: storefront-auth)
	JWTSecret        string // Required: HS256 secret for access tokens
	JWTRefreshSecret string // Required: HS256 secret for refresh tokens, must differ from JWTSecret

	AccessTTL      time.Duration // Access token lifetime after register and refresh (default: 15m)
	LoginAccessTTL time.Duration // Access token lifetime after login (default: 2h)
	OTPAccessTTL   time.Duration // Access token lifetime after OTP verification (default: 1h)
	RefreshTTL     time.Duration // Refresh token and cookie lifetime (default: 7 days)

	OTPTTL     time.Duration // Code validity (default: 5m)
	OTPBackend string        // memory, redis or database (default: memory)

	RedisAddr     string // Redis address for OTP_BACKEND=redis (default: localhost:6379)
	RedisPassword string
	RedisDB       int

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: auth.db)
	DatabaseURL    string // Postgres DSN, required when DatabaseDriver is postgres

	PepperFile string // Password pepper file, created on first start (default: pepper)

	MailDriver string // smtp or log (default: smtp)
	SMTPHost   string // (default: smtp.gmail.com)
	SMTPPort   int    // (default: 587)
	EmailUser  string // Required for smtp
	EmailPass  string // Required for smtp
	MailFrom   string // Defaults to EmailUser

	CORSOrigins []string // Allowed browser origins (default: *)

	Env                  string        // dev, staging, production (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // OTP purge interval for backends without expiry (default: 1m)

	RateLimits httpx.RateLimitProfiles
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

var defaults = map[string]any{
	"AUTH_ISSUER":            "storefront-auth",
	"ACCESS_TOKEN_TTL":       "15m",
	"LOGIN_ACCESS_TOKEN_TTL": "2h",
	"OTP_ACCESS_TOKEN_TTL":   "1h",
	"REFRESH_TOKEN_TTL":      "168h",
	"OTP_TTL":                "5m",
	"OTP_BACKEND":            "memory",
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_DB":               0,
	"DATABASE_DRIVER":        "sqlite",
	"AUTH_DATABASE_FILE":     "auth.db",
	"AUTH_PEPPER_FILE":       "pepper",
	"MAIL_DRIVER":            "smtp",
	"SMTP_HOST":              "smtp.gmail.com",
	"SMTP_PORT":              587,
	"CORS_ALLOWED_ORIGINS":   "*",
	"ENV":                    "dev",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"PORT":                   8080,
	"SHUTDOWN_GRACE_PERIOD":  "10s",
	"HOUSEKEEPING_INTERVAL":  "1m",
}

// LoadConfig reads the configuration from the environment. Values may also
// come from the file named by CONFIG_FILE, or from a .env file in the
// working directory; the environment wins over both.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read .env: %w", err)
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	p := &parser{v: v}

	cfg := Config{
		Issuer:           v.GetString("AUTH_ISSUER"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTRefreshSecret: v.GetString("JWT_REFRESH_SECRET"),

		AccessTTL:      p.duration("ACCESS_TOKEN_TTL"),
		LoginAccessTTL: p.duration("LOGIN_ACCESS_TOKEN_TTL"),
		OTPAccessTTL:   p.duration("OTP_ACCESS_TOKEN_TTL"),
		RefreshTTL:     p.duration("REFRESH_TOKEN_TTL"),

		OTPTTL:     p.duration("OTP_TTL"),
		OTPBackend: strings.ToLower(v.GetString("OTP_BACKEND")),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       p.int("REDIS_DB"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseFile:   v.GetString("AUTH_DATABASE_FILE"),
		DatabaseURL:    v.GetString("DATABASE_URL"),

		PepperFile: v.GetString("AUTH_PEPPER_FILE"),

		MailDriver: strings.ToLower(v.GetString("MAIL_DRIVER")),
		SMTPHost:   v.GetString("SMTP_HOST"),
		SMTPPort:   p.int("SMTP_PORT"),
		EmailUser:  v.GetString("EMAIL_USER"),
		EmailPass:  v.GetString("EMAIL_PASS"),
		MailFrom:   v.GetString("MAIL_FROM"),

		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		Port:                 p.int("PORT"),
		ShutdownGracePeriod:  p.duration("SHUTDOWN_GRACE_PERIOD"),
		HousekeepingInterval: p.duration("HOUSEKEEPING_INTERVAL"),
	}

	limits := httpx.DefaultRateLimitProfiles()
	cfg.RateLimits = httpx.RateLimitProfiles{
		Strict:   p.rateLimit("STRICT", limits.Strict),
		Moderate: p.rateLimit("MODERATE", limits.Moderate),
		Lenient:  p.rateLimit("LENIENT", limits.Lenient),
		Public:   p.rateLimit("PUBLIC", limits.Public),
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.EmailUser
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var missing []string
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	require("JWT_SECRET", c.JWTSecret)
	require("JWT_REFRESH_SECRET", c.JWTRefreshSecret)
	if c.MailDriver == "smtp" {
		require("EMAIL_USER", c.EmailUser)
		require("EMAIL_PASS", c.EmailPass)
	}
	if c.DatabaseDriver == "postgres" {
		require("DATABASE_URL", c.DatabaseURL)
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", ")))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	switch c.OTPBackend {
	case "memory", "redis", "database":
	default:
		errs = append(errs, fmt.Errorf("OTP_BACKEND: unknown backend %q", c.OTPBackend))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER: unknown driver %q", c.DatabaseDriver))
	}
	switch c.MailDriver {
	case "smtp":
	case "log":
		if c.IsProduction() {
			errs = append(errs, errors.New("MAIL_DRIVER=log is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER: unknown driver %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

// parser collects conversion errors so they are reported together.
type parser struct {
	v    *viper.Viper
	errs []error
}

// duration accepts a Go duration ("90s", "2h") or a bare integer number of
// minutes.
func (p *parser) duration(key string) time.Duration {
	raw := strings.TrimSpace(p.v.GetString(key))
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
	return 0
}

func (p *parser) int(key string) int {
	raw := strings.TrimSpace(p.v.GetString(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
	}
	return n
}

func (p *parser) rateLimit(profile string, def httpx.RateLimitConfig) httpx.RateLimitConfig {
	prefix := "RATELIMIT_" + profile + "_"
	cfg := def
	if p.v.IsSet(prefix + "REQUESTS") {
		cfg.RequestsPerWindow = p.int(prefix + "REQUESTS")
	}
	if p.v.IsSet(prefix + "WINDOW_SEC") {
		cfg.Window = time.Duration(p.int(prefix+"WINDOW_SEC")) * time.Second
	}
	if p.v.IsSet(prefix + "BURST") {
		cfg.Burst = p.int(prefix + "BURST")
	}
	if cfg.RequestsPerWindow <= 0 || cfg.Window <= 0 || cfg.Burst <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s*: rate limit values must be positive", prefix))
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
