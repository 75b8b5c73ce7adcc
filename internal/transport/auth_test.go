package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/easelhq/easel/internal/repository"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]string

func (r staticResolver) ResolveAccount(_ context.Context, token string) (string, error) {
	account, ok := r[token]
	if !ok {
		return "", repository.ErrNotFound
	}
	return account, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := staticResolver{"tok-alice": "alice"}

	var gotAccount string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount, gotOK = AccountFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(resolver)(next)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		req.Header.Set("Authorization", "Bearer tok-alice")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, gotOK)
		require.Equal(t, "alice", gotAccount)
	})

	t.Run("no token passes through anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, gotOK)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAccount(t *testing.T) {
	_, err := requireAccount(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	ctx := context.WithValue(context.Background(), accountKey{}, "alice")
	account, err := requireAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", account)
}
