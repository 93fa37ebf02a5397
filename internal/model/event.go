package model

import "time"

// Webhook event names.
const (
	EventEmailSent   = "email.sent"
	EventEmailFailed = "email.failed"
)

// WebhookEvent is the JSON body POSTed to an account's webhook URL.
type WebhookEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData carries the email metadata for a webhook event.
type EventData struct {
	EmailID           int64      `json:"email_id"`
	AccountID         string     `json:"account_id"`
	IdempotencyKey    string     `json:"idempotency_key"`
	To                string     `json:"to"`
	Subject           string     `json:"subject"`
	Status            string     `json:"status"`
	Attempts          int        `json:"attempts"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}
