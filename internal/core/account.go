package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/sendline/internal/model"
	"github.com/edvin/sendline/internal/platform"
)

// AccountService manages accounts. Only operator tooling writes them.
type AccountService struct {
	db DB
}

// NewAccountService creates a new AccountService.
func NewAccountService(db DB) *AccountService {
	return &AccountService{db: db}
}

// Upsert creates the account, or updates name, quota and webhook when the id
// already exists. An empty id gets a generated one.
func (s *AccountService) Upsert(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = platform.NewID()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO accounts (id, name, monthly_quota, webhook_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, monthly_quota = EXCLUDED.monthly_quota,
		     webhook_url = EXCLUDED.webhook_url, updated_at = now()
		 RETURNING created_at, updated_at`,
		a.ID, a.Name, a.MonthlyQuota, a.WebhookURL,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

// GetByID retrieves an account by its ID.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, name, monthly_quota, webhook_url, created_at, updated_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.MonthlyQuota, &a.WebhookURL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &a, nil
}
