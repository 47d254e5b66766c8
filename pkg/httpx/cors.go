package httpx

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS allows browser clients from origins to call the API with
// credentials, which the refresh cookie needs. "*" allows any origin; the
// request Origin is echoed back because browsers refuse a literal "*"
// alongside credentials.
func CORS(origins []string) Middleware {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(opts).Handler
}
