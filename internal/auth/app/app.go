package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/storefront/internal/auth/http"
	"github.com/aussiebroadwan/storefront/internal/auth/mailer"
	"github.com/aussiebroadwan/storefront/internal/auth/otp"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the auth service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	redis  *redis.Client // nil unless OTP_BACKEND=redis
	tokens *jwtx.Issuer
	ledger *otp.Ledger
	mail   mailer.Mailer

	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService // nil when the backend expires keys itself

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	steps := []func(context.Context) error{
		app.initTokens,
		app.initOTP,
		app.initMailer,
	}
	for _, fn := range steps {
		if err := fn(ctx); err != nil {
			_ = app.closeStores()
			return nil, err
		}
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"otp_backend", app.cfg.OTPBackend,
		"mail_driver", app.cfg.MailDriver,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(gctx))
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initTokens(context.Context) error {
	tokens, err := jwtx.NewIssuer(app.cfg.Issuer,
		jwtx.KindConfig{Secret: []byte(app.cfg.JWTSecret), TTL: app.cfg.AccessTTL},
		jwtx.KindConfig{Secret: []byte(app.cfg.JWTRefreshSecret), TTL: app.cfg.RefreshTTL},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.tokens = tokens
	return nil
}

// initOTP selects the code backend. Redis expires keys on its own; the
// memory and database backends are swept by housekeeping.
func (app *Application) initOTP(ctx context.Context) error {
	var backend otp.Backend
	switch app.cfg.OTPBackend {
	case "redis":
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
		}
		backend = otp.NewRedisBackend(app.redis)
	case "database":
		backend = otp.NewStoreBackend(app.db)
	default:
		backend = otp.NewMemoryBackend()
	}

	app.ledger = otp.NewLedger(backend, app.cfg.OTPTTL)

	if p, ok := backend.(otp.Purger); ok {
		app.housekeepingService = service.NewHousekeepingService(
			p,
			app.ledger.Retention,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
	return nil
}

func (app *Application) initMailer(context.Context) error {
	if app.cfg.MailDriver == "log" {
		app.logger.Warn("MAIL_DRIVER=log: one-time codes are written to the log, not emailed")
		app.mail = mailer.LogMailer{}
		return nil
	}

	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.EmailUser,
		Password: app.cfg.EmailPass,
		From:     app.cfg.MailFrom,
		Validity: app.cfg.OTPTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mail = m
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokens,
		Ledger: app.ledger,
		Mailer: app.mail,
		TTLs: service.TTLs{
			RegisterAccess: app.cfg.AccessTTL,
			LoginAccess:    app.cfg.LoginAccessTTL,
			OTPAccess:      app.cfg.OTPAccessTTL,
			RefreshAccess:  app.cfg.AccessTTL,
			Refresh:        app.cfg.RefreshTTL,
		},
	}
	app.userService = &service.UserService{Store: app.db}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.RateLimits,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.Cookie = httpapi.CookieConfig{
		Secure: app.cfg.IsProduction(),
		MaxAge: app.cfg.RefreshTTL,
	}
	router.CORSOrigins = app.cfg.CORSOrigins
	if app.redis != nil {
		router.OTPStoreCheck = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the fully wired router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}
