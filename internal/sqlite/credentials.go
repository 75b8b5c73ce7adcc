package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/easelhq/easel/internal/repository"
	"github.com/google/uuid"
)

// CredentialStore resolves bearer tokens to account identifiers.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// ResolveAccount returns the account behind a bearer token.
func (s *CredentialStore) ResolveAccount(ctx context.Context, token string) (string, error) {
	var account string
	err := s.db.QueryRowContext(ctx,
		"SELECT account FROM credentials WHERE token_hash = ?", hashToken(token),
	).Scan(&account)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve credential: %w", err)
	}
	return account, nil
}

// CreateCredential mints a bearer token for an account. Only the hash is
// stored; the token itself is returned once.
func (s *CredentialStore) CreateCredential(ctx context.Context, account string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO credentials (token_hash, account) VALUES (?, ?)", hashToken(token), account)
	if err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
