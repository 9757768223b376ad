package middleware

import (
	"net/http"
	"strings"
)

// Keys holds the two access levels: public keys may read run reports, admin
// keys may also trigger runs. An empty level disables its check, which keeps
// local development keyless.
type Keys struct {
	Public []string
	Admin  []string
}

// clientKey pulls the API key from a Bearer token or the X-API-Key header.
func clientKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func keyIn(key string, sets ...[]string) bool {
	if key == "" {
		return false
	}
	for _, set := range sets {
		for _, k := range set {
			if k == key {
				return true
			}
		}
	}
	return false
}

// RequireAny gates read endpoints: any configured key, public or admin,
// is accepted.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Public) == 0 && len(keys.Admin) == 0 {
		return passThrough
	}
	return gate(http.StatusUnauthorized, `{"error":"unauthorized"}`, func(r *http.Request) bool {
		return keyIn(clientKey(r), keys.Public, keys.Admin)
	})
}

// RequireAdmin gates run-trigger endpoints: only admin keys pass.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Admin) == 0 {
		return passThrough
	}
	return gate(http.StatusForbidden, `{"error":"forbidden"}`, func(r *http.Request) bool {
		return keyIn(clientKey(r), keys.Admin)
	})
}

func passThrough(next http.Handler) http.Handler { return next }

func gate(denyCode int, denyBody string, allowed func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed(r) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(denyCode)
			_, _ = w.Write([]byte(denyBody))
		})
	}
}
