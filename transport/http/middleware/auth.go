package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware guards administrative endpoints with static API keys
type AuthMiddleware struct {
	apiKeys [][]byte
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(keys ...string) *AuthMiddleware {
	a := &AuthMiddleware{}
	for _, k := range keys {
		a.AddAPIKey(k)
	}
	return a
}

// AddAPIKey adds an allowed API key
func (a *AuthMiddleware) AddAPIKey(key string) {
	if key != "" {
		a.apiKeys = append(a.apiKeys, []byte(key))
	}
}

// Enabled reports whether any key is configured
func (a *AuthMiddleware) Enabled() bool {
	return len(a.apiKeys) > 0
}

// Middleware returns the HTTP middleware function. The key is read from
// X-API-Key or an "Authorization: Bearer" header.
func (a *AuthMiddleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key != "" && a.allowed(key) {
			next(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "unauthorized", "message": "valid authentication required"}`))
	}
}

func (a *AuthMiddleware) allowed(key string) bool {
	for _, k := range a.apiKeys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			return true
		}
	}
	return false
}
