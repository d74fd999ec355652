package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyMiddleware validates the public API key from the X-API-Key header
// Every client of the Remote Data Service, including the site, sends it with each call
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providedKey := r.Header.Get("X-API-Key")

			if providedKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key", "auth_required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
