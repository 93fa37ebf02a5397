package model

import "time"

// Account owns emails and API keys. The delivery pipeline only reads it.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	MonthlyQuota int64     `json:"monthly_quota" db:"monthly_quota"`
	WebhookURL   *string   `json:"webhook_url,omitempty" db:"webhook_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
