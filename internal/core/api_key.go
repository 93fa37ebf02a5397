package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/sendline/internal/model"
	"github.com/edvin/sendline/internal/platform"
)

// APIKeyService manages API keys. Only the sha256 of a key is stored.
type APIKeyService struct {
	db DB
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// Create generates a key for the account and returns it with the raw key
// string. The raw key must be shown to the user exactly once.
func (s *APIKeyService) Create(ctx context.Context, accountID, name string) (*model.APIKey, string, error) {
	rawKey := platform.NewAPIKey()
	key, err := s.CreateWithRawKey(ctx, accountID, name, rawKey)
	if err != nil {
		return nil, "", err
	}
	return key, rawKey, nil
}

// CreateWithRawKey stores a caller-provided key. Used by seed files where the
// raw value must be deterministic. Re-seeding the same key is a no-op.
func (s *APIKeyService) CreateWithRawKey(ctx context.Context, accountID, name, rawKey string) (*model.APIKey, error) {
	key := &model.APIKey{
		ID:        platform.NewID(),
		AccountID: accountID,
		Name:      name,
		KeyHash:   platform.HashAPIKey(rawKey),
		KeyPrefix: platform.APIKeyPrefix(rawKey),
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, account_id, name, key_hash, key_prefix)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key_hash) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, created_at`,
		key.ID, key.AccountID, key.Name, key.KeyHash, key.KeyPrefix,
	).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// Authenticate resolves a raw key to the account it belongs to.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (string, error) {
	var accountID string
	err := s.db.QueryRow(ctx,
		`SELECT account_id FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		platform.HashAPIKey(rawKey),
	).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("authenticate api key: %w", err)
	}
	return accountID, nil
}

// Revoke soft-deletes an API key by setting revoked_at.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}
