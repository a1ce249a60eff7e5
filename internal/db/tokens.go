package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/replydesk/internal/crypto"
	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned when no OAuth token has been stored yet.
var ErrTokenNotFound = errors.New("oauth token not found")

// TokenStore keeps one sealed OAuth token per provider.
type TokenStore struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
	provider  string
}

// NewTokenStore creates a TokenStore for the given provider name, e.g. "gmail".
func NewTokenStore(pool *pgxpool.Pool, encryptor *crypto.Encryptor, provider string) *TokenStore {
	return &TokenStore{pool: pool, encryptor: encryptor, provider: provider}
}

// LoadToken returns the stored token.
func (s *TokenStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	var sealed []byte
	err := s.pool.QueryRow(ctx, `
		SELECT sealed_token FROM oauth_tokens WHERE provider = $1
	`, s.provider).Scan(&sealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth token: %w", err)
	}

	var token oauth2.Token
	if err := s.encryptor.OpenJSON(sealed, &token); err != nil {
		return nil, fmt.Errorf("failed to open oauth token: %w", err)
	}
	return &token, nil
}

// SaveToken seals and stores token, replacing any previous one.
func (s *TokenStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	sealed, err := s.encryptor.SealJSON(token)
	if err != nil {
		return fmt.Errorf("failed to seal oauth token: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO oauth_tokens (provider, sealed_token)
		VALUES ($1, $2)
		ON CONFLICT (provider) DO UPDATE SET
			sealed_token = EXCLUDED.sealed_token,
			updated_at = now()
	`, s.provider, sealed)
	if err != nil {
		return fmt.Errorf("failed to save oauth token: %w", err)
	}
	return nil
}
