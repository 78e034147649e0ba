package auth

import (
	"context"
	"net/http"
	"strings"
)

// Credentials are the provider login details passed per request. They
// are never stored; each sync request carries its own.
type Credentials struct {
	Email    string
	Password string
}

type contextKey string

const (
	credentialsKey contextKey = "fitsync-credentials"
	claimsKey      contextKey = "fitsync-claims"
)

// WithCredentials stores provider credentials on the context.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext retrieves credentials stored by the middleware.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(Credentials)
	return creds, ok
}

// WithClaims stores dashboard session claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// CredentialsMiddleware enforces the X-Email and X-Password headers on
// telemetry endpoints and exposes them through the request context.
type CredentialsMiddleware struct {
	Skipper Skipper
}

// Wrap attaches credential extraction to an http.Handler.
func (m CredentialsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		email := strings.TrimSpace(r.Header.Get("X-Email"))
		password := r.Header.Get("X-Password")
		if email == "" || password == "" {
			http.Error(w, "missing X-Email or X-Password header", http.StatusUnauthorized)
			return
		}

		ctx := WithCredentials(r.Context(), Credentials{Email: email, Password: password})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerMiddleware validates dashboard session tokens.
type BearerMiddleware struct {
	Config  Config
	Skipper Skipper
}

// Wrap attaches bearer-token validation to an http.Handler.
func (m BearerMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := Parse(token, m.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
