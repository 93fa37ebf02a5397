// Package provider adapts the external transactional-email API.
package provider

import (
	"context"
	"fmt"
)

// Message is a provider-agnostic email. At least one of HTML or Text is set.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	// IdempotencyKey is forwarded to providers that suppress duplicate sends.
	IdempotencyKey string
}

// Client sends a message and returns the provider's message id. A send is
// accepted only when a non-empty id comes back; anything else is an *Error.
type Client interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// Error is a failed or unacknowledged send. It is always retryable.
type Error struct {
	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider: %s (status %d)", e.Message, e.StatusCode)
	}
	return "provider: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }
