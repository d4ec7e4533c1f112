package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Anonymous is attached to every request when authentication is disabled.
var Anonymous = &Principal{UserID: "anonymous"}

type Principal struct {
	UserID string // token sub
	Email  string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// Middleware requires a valid bearer token on every request. A nil
// authenticator disables the check and attaches Anonymous.
func Middleware(authn Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if authn == nil {
				next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), Anonymous)))
				return
			}

			authz := req.Header.Get("Authorization")
			if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
				unauthorized(w)
				return
			}
			p, err := authn.Authenticate(req.Context(), strings.TrimSpace(authz[7:]))
			if err != nil || p == nil {
				logger.Info().
					Bool("auth_success", false).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Err(err).
					Msg("auth attempt")
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), p)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="syllabai"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
