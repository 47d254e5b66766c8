package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws so that the first middleware listed is the
// outermost, i.e. runs first on the way in.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns a panicking handler into a 500 {message} response and logs
// the stack with the request logger.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				slogx.FromContext(r.Context()).Error("panic serving request",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				WriteMessage(w, http.StatusInternalServerError, "something went wrong")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
