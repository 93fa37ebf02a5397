package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/sendline/internal/model"
)

// UsageService reads the billing ledger.
type UsageService struct {
	db DB
}

// NewUsageService creates a new UsageService.
func NewUsageService(db DB) *UsageService {
	return &UsageService{db: db}
}

// MonthlyUsage returns how many emails the account was billed for in the
// month containing t.
func (s *UsageService) MonthlyUsage(ctx context.Context, accountID string, t time.Time) (*model.MonthlyUsage, error) {
	u := model.MonthlyUsage{AccountID: accountID, Month: model.BillingMonth(t)}
	err := s.db.QueryRow(ctx,
		`SELECT a.monthly_quota,
		        (SELECT count(*) FROM usage_records r WHERE r.account_id = a.id AND r.month = $2)
		 FROM accounts a WHERE a.id = $1`,
		accountID, u.Month,
	).Scan(&u.MonthlyQuota, &u.Sent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("usage for account %s: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("usage for account %s: %w", accountID, err)
	}
	return &u, nil
}
