package httpx

import (
	"crypto/subtle"
	"net/http"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so that the first middleware listed is the
// outermost one at request time.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

const internalAuthHeader = "X-Internal-Auth"

// RequireInternalAuth validates a shared secret on internal/admin endpoints.
// The comparison is constant-time to prevent timing attacks.
func RequireInternalAuth(sharedSecret string) Middleware {
	secret := []byte(sharedSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.Header.Get(internalAuthHeader))
			if len(provided) == 0 {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:            "unauthorized",
					ErrorDescription: "missing internal auth header",
				})
				return
			}
			if subtle.ConstantTimeCompare(provided, secret) != 1 {
				WriteJSON(w, http.StatusForbidden, ErrorResponse{
					Error:            "forbidden",
					ErrorDescription: "invalid internal auth",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
