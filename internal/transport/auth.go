package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type accountKey struct{}

// AccountResolver resolves an account identifier from a bearer token.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, token string) (string, error)
}

// AccountFromContext returns the authenticated account, if present.
func AccountFromContext(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey{}).(string)
	return account, ok
}

// AuthMiddleware attaches the account behind the bearer token to the
// request context. Requests without credentials pass through anonymously;
// mutating methods check for an account at dispatch.
func AuthMiddleware(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			account, err := resolver.ResolveAccount(r.Context(), token)
			if err != nil || account == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
