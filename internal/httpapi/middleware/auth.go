package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys lists accepted API keys. Admin keys may also read.
type Keys struct {
	Public []string
	Admin  []string
}

// BearerOrAPIKey reads "Authorization: Bearer <k>", falling back to X-API-Key.
func BearerOrAPIKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func matches(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny lets through requests carrying a public or admin key.
// With no keys configured every request passes (local use).
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Public) == 0 && len(keys.Admin) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := BearerOrAPIKey(r)
			if matches(key, keys.Public) || matches(key, keys.Admin) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// RequireAdmin only lets through admin keys: 401 without a key, 403 with a
// non-admin one. With no admin keys configured every request passes.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Admin) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := BearerOrAPIKey(r)
			switch {
			case matches(key, keys.Admin):
				next.ServeHTTP(w, r)
			case key == "":
				deny(w, http.StatusUnauthorized, "unauthorized")
			default:
				deny(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}
