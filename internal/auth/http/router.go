package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"

	_ "github.com/aussiebroadwan/storefront/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux       *http.ServeMux
	handler   http.Handler
	applyOnce sync.Once

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.RateLimitProfiles

	store       store.Store
	AuthService *service.AuthService
	UserService *service.UserService

	// Cookie controls the refresh token cookie.
	Cookie CookieConfig

	// CORSOrigins defaults to every origin.
	CORSOrigins []string

	// OTPStoreCheck is reported on /readyz when set.
	OTPStoreCheck func(ctx context.Context) error
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	limits httpx.RateLimitProfiles,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		limits:       limits,
		Cookie:       CookieConfig{MaxAge: jwtx.DefaultRefreshTokenTTL},
		CORSOrigins:  []string{"*"},
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Call it after the exported fields are set; later calls are no-ops.
func (r *Router) ApplyRoutes() {
	r.applyOnce.Do(r.applyRoutes)
}

func (r *Router) applyRoutes() {
	r.registerAuth()
	r.registerOTP()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpx.Chain(httpSwagger.Handler(),
		httpx.RateLimitByIP(r.limits.Public),
	))

	r.handler = httpx.Chain(r.Mux,
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		httpx.CORS(r.CORSOrigins),
	)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Storefront Authentication API
//	@version		0.1.0
//	@description	Registration, login and emailed one-time-code sign-up for the storefront.
//	@description
//	@description				Access tokens are HS256 JWTs sent as "Authorization: Bearer {token}". The refresh token
//	@description				travels only in the HttpOnly refreshToken cookie.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/storefront
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.ApplyRoutes()
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, Cookie: r.Cookie}

	// Credential endpoints: strict, keyed by IP plus the email being tried.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	me := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.limits.Lenient),
		),
	)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{AuthService: r.AuthService, Cookie: r.Cookie}

	// Every send costs an email; limit per address as well as per IP.
	r.Mux.Handle("POST /api/otp/send-otp",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/otp/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /{$}",
		httpx.Chain(WelcomeHandler(),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	// Health check endpoints: monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.OTPStoreCheck),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	r.Mux.Handle("/", NotFoundHandler())
}
