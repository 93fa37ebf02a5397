// Package notify delivers account webhooks for terminal email events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/sendline/internal/model"
	"github.com/edvin/sendline/internal/platform"
)

// DefaultRetryDelays are the waits between webhook attempts: one initial
// attempt plus one retry per entry.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// DefaultAttemptTimeout bounds a single webhook POST.
const DefaultAttemptTimeout = 5 * time.Second

// AccountLookup resolves an account's webhook URL. "" means no webhook.
type AccountLookup interface {
	WebhookURL(ctx context.Context, accountID string) (string, error)
}

// Metrics records webhook delivery outcomes.
type Metrics interface {
	ObserveWebhook(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveWebhook(string) {}

// Webhook outcomes reported to Metrics.
const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeExhausted = "exhausted"
)

// Error reports a webhook that could not be delivered. Callers log it; it
// never changes an email's status.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("webhook %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Notifier POSTs webhook events to the URL configured on an account.
type Notifier struct {
	accounts       AccountLookup
	client         *http.Client
	attemptTimeout time.Duration
	delays         []time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	metrics        Metrics
	logger         zerolog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.attemptTimeout = d }
}

// WithRetryDelays overrides the waits between attempts.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(n *Notifier) { n.delays = delays }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// NewNotifier creates a Notifier.
func NewNotifier(accounts AccountLookup, logger zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		accounts:       accounts,
		client:         &http.Client{},
		attemptTimeout: DefaultAttemptTimeout,
		delays:         DefaultRetryDelays,
		sleep:          sleepCtx,
		metrics:        nopMetrics{},
		logger:         logger.With().Str("component", "notifier").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewEvent builds the webhook envelope for an email.
func NewEvent(event string, email *model.Email, now time.Time) model.WebhookEvent {
	return model.WebhookEvent{
		ID:        platform.NewID(),
		Event:     event,
		CreatedAt: now.UTC(),
		Data: model.EventData{
			EmailID:           email.ID,
			AccountID:         email.AccountID,
			IdempotencyKey:    email.IdempotencyKey,
			To:                email.To,
			Subject:           email.Subject,
			Status:            email.Status,
			Attempts:          email.Attempts,
			ProviderMessageID: deref(email.ProviderMessageID),
			SentAt:            email.SentAt,
			LastError:         deref(email.LastError),
		},
	}
}

// Notify delivers event to the account's webhook. Accounts without a webhook
// are a no-op. Non-2xx responses, transport errors and timeouts are retried
// after each configured delay; when every attempt failed an *Error is
// returned.
func (n *Notifier) Notify(ctx context.Context, accountID string, event model.WebhookEvent) error {
	url, err := n.accounts.WebhookURL(ctx, accountID)
	if err != nil {
		return fmt.Errorf("look up webhook for account %s: %w", accountID, err)
	}
	if url == "" {
		n.metrics.ObserveWebhook(OutcomeSkipped)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	attempts := 0
	for {
		attempts++
		lastErr := n.post(ctx, url, body)
		if lastErr == nil {
			n.metrics.ObserveWebhook(OutcomeDelivered)
			return nil
		}

		n.logger.Warn().Err(lastErr).
			Str("event", event.Event).
			Str("event_id", event.ID).
			Int64("email_id", event.Data.EmailID).
			Int("attempt", attempts).
			Msg("webhook attempt failed")

		if attempts > len(n.delays) {
			n.metrics.ObserveWebhook(OutcomeExhausted)
			return &Error{URL: url, Attempts: attempts, Err: lastErr}
		}
		if err := n.sleep(ctx, n.delays[attempts-1]); err != nil {
			n.metrics.ObserveWebhook(OutcomeExhausted)
			return &Error{URL: url, Attempts: attempts, Err: err}
		}
	}
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST to %s: %w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook returned %d", resp.StatusCode)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
