package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// Messages returned by AuthnMiddleware. Expired tokens get their own message
// so clients know a refresh is worth trying.
const (
	MsgBearerRequired = "unauthorized: token is required in bearer format"
	MsgTokenExpired   = "token expired, please login again or refresh the token"
	MsgTokenInvalid   = "unauthorized: invalid token"
)

// AuthnMiddleware requires an "Authorization: Bearer <access token>" header,
// verifies it as an access token and stores the claims in the request
// context.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "invalid_request", MsgBearerRequired)
				return
			}

			claims, err := v.Verify(raw, jwtx.Access)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, "invalid_token", MsgTokenExpired)
					return
				}
				log.Warn("access token rejected", "err", err)
				writeBearerError(w, "invalid_token", MsgTokenInvalid)
				return
			}

			ctx = slogx.WithUserID(contextWithAuth(ctx, claims), claims.RegisteredClaims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeBearerError sets an RFC 6750 challenge and writes a {message} body.
func writeBearerError(w http.ResponseWriter, code, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	WriteMessage(w, http.StatusUnauthorized, msg)
}
