package model

import "time"

// UsageRecord is an append-only billing ledger entry. At most one exists per email.
type UsageRecord struct {
	ID        int64     `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	EmailID   int64     `json:"email_id" db:"email_id"`
	Month     time.Time `json:"month" db:"month"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BillingMonth returns the first day of t's month in UTC, which is the
// bucket a usage record is billed against.
func BillingMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyUsage summarizes billed sends for one account and month.
type MonthlyUsage struct {
	AccountID    string    `json:"account_id"`
	Month        time.Time `json:"month"`
	Sent         int64     `json:"sent"`
	MonthlyQuota int64     `json:"monthly_quota"`
}
