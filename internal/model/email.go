package model

import "time"

// Email is a single send intent. The payload is immutable after creation;
// Status, Attempts, LastError, ProviderMessageID and SentAt are written only
// by the delivery pipeline.
type Email struct {
	ID                int64      `json:"id" db:"id"`
	AccountID         string     `json:"account_id" db:"account_id"`
	IdempotencyKey    string     `json:"idempotency_key" db:"idempotency_key"`
	To                string     `json:"to" db:"to_address"`
	From              string     `json:"from" db:"from_address"`
	Subject           string     `json:"subject" db:"subject"`
	HTML              *string    `json:"html,omitempty" db:"html_body"`
	Text              *string    `json:"text,omitempty" db:"text_body"`
	Status            string     `json:"status" db:"status"`
	Attempts          int        `json:"attempts" db:"attempts"`
	LastError         *string    `json:"last_error,omitempty" db:"last_error"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty" db:"provider_message_id"`
	SentAt            *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
