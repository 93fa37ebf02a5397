// Package pipeline processes one delivery job: claim the email, hand it to
// the provider, then commit the billing record or advance the retry state
// machine, and finally notify the account.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/sendline/internal/ledger"
	"github.com/edvin/sendline/internal/model"
	"github.com/edvin/sendline/internal/notify"
	"github.com/edvin/sendline/internal/provider"
)

// Store is the subset of the ledger the pipeline writes through.
type Store interface {
	ClaimEmail(ctx context.Context, id int64) (*model.Email, error)
	CommitSent(ctx context.Context, email *model.Email, messageID string, sentAt time.Time) error
	RecordFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (ledger.FailureOutcome, error)
	AbandonEmail(ctx context.Context, id int64, reason string) (*model.Email, error)
}

// Notifier delivers webhook events.
type Notifier interface {
	Notify(ctx context.Context, accountID string, event model.WebhookEvent) error
}

// Metrics records pipeline outcomes.
type Metrics interface {
	ObserveResult(kind string)
	ObserveProviderDuration(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResult(string)                  {}
func (nopMetrics) ObserveProviderDuration(time.Duration) {}

// Pipeline runs delivery attempts. It is safe for concurrent use; the claim
// in the store is the only coordination between workers.
type Pipeline struct {
	store        Store
	provider     provider.Client
	notifier     Notifier
	logger       zerolog.Logger
	metrics      Metrics
	now          func() time.Time
	maxAttempts  int
	sendTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxAttempts sets how many failed attempts mark an email failed.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) { p.maxAttempts = n }
}

// WithSendTimeout bounds a single provider call.
func WithSendTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.sendTimeout = d }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the time source used for sent_at and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(store Store, client provider.Client, notifier Notifier, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		provider:     client,
		notifier:     notifier,
		logger:       logger.With().Str("component", "pipeline").Logger(),
		metrics:      nopMetrics{},
		now:          time.Now,
		maxAttempts:  DefaultMaxAttempts,
		sendTimeout:  30 * time.Second,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one delivery attempt for the email.
func (p *Pipeline) Process(ctx context.Context, emailID int64) Result {
	res := p.process(ctx, emailID)
	p.metrics.ObserveResult(res.Kind.String())
	return res
}

func (p *Pipeline) process(ctx context.Context, emailID int64) Result {
	log := p.logger.With().Int64("email_id", emailID).Logger()

	email, err := p.store.ClaimEmail(ctx, emailID)
	var held *ledger.ClaimHeldError
	switch {
	case errors.As(err, &held):
		// A crashed or slow attempt owns the row until its lease expires.
		log.Info().Err(err).Dur("retry_after", held.RetryAfter).Msg("email claimed by another attempt")
		return Result{Kind: KindRetryable, EmailID: emailID, Err: err, RetryAfter: held.RetryAfter}
	case errors.Is(err, ledger.ErrClaimMiss):
		log.Info().Err(err).Msg("email not claimable, skipping")
		return Result{Kind: KindSkipped, EmailID: emailID}
	case errors.Is(err, ledger.ErrEmailNotFound):
		log.Error().Err(err).Msg("delivery job references a missing email")
		return Result{Kind: KindInvalid, EmailID: emailID, Err: err}
	case err != nil:
		// Nothing was claimed, so there is no attempt to count.
		log.Warn().Err(err).Msg("claim failed")
		return Result{Kind: KindRetryable, EmailID: emailID, Err: err}
	}

	log = log.With().Str("account_id", email.AccountID).Int("attempts", email.Attempts).Logger()

	messageID, err := p.send(ctx, email)
	if err != nil {
		log.Warn().Err(err).Msg("provider send failed")
		return p.fail(ctx, log, email, err)
	}

	sentAt := p.now().UTC()
	wctx, cancel := p.writeContext(ctx)
	err = p.store.CommitSent(wctx, email, messageID, sentAt)
	cancel()
	if errors.Is(err, ledger.ErrNotOwner) {
		log.Warn().Err(err).Str("provider_message_id", messageID).Msg("email changed hands before commit, skipping")
		return Result{Kind: KindSkipped, EmailID: emailID}
	}
	if err != nil {
		log.Error().Err(err).Str("provider_message_id", messageID).Msg("commit after provider acceptance failed")
		return p.fail(ctx, log, email, err)
	}

	email.Status = model.StatusSent
	email.ProviderMessageID = &messageID
	email.SentAt = &sentAt
	email.LastError = nil
	log.Info().Str("provider_message_id", messageID).Msg("email sent")

	p.notify(ctx, log, model.EventEmailSent, email)
	return Result{Kind: KindSent, EmailID: emailID, Attempts: email.Attempts, MessageID: messageID}
}

func (p *Pipeline) send(ctx context.Context, email *model.Email) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	start := p.now()
	id, err := p.provider.Send(ctx, MessageFor(email))
	p.metrics.ObserveProviderDuration(p.now().Sub(start))
	return id, err
}

// fail records a failed attempt and decides between retrying and failed.
func (p *Pipeline) fail(ctx context.Context, log zerolog.Logger, email *model.Email, cause error) Result {
	wctx, cancel := p.writeContext(ctx)
	out, err := p.store.RecordFailure(wctx, email.ID, cause.Error(), p.maxAttempts)
	cancel()
	if errors.Is(err, ledger.ErrNotOwner) {
		log.Warn().Err(err).Msg("email changed hands before failure was recorded, skipping")
		return Result{Kind: KindSkipped, EmailID: email.ID}
	}
	if err != nil {
		log.Error().Err(err).Msg("record failure")
		return Result{Kind: KindRetryable, EmailID: email.ID, Err: fmt.Errorf("%w (record failure: %v)", cause, err)}
	}

	log = log.With().Int("attempts", out.Attempts).Logger()
	if out.Status != model.StatusFailed {
		log.Info().Dur("next_delay", Backoff(out.Attempts)).Msg("email scheduled for retry")
		return Result{Kind: KindRetryable, EmailID: email.ID, Attempts: out.Attempts, Err: cause}
	}

	msg := cause.Error()
	email.Status = model.StatusFailed
	email.Attempts = out.Attempts
	email.LastError = &msg
	log.Warn().Err(cause).Msg("email failed permanently")

	p.notify(ctx, log, model.EventEmailFailed, email)
	return Result{Kind: KindFailed, EmailID: email.ID, Attempts: out.Attempts, Err: cause}
}

// Abandon marks an email failed after the scheduler stopped redelivering it
// without the pipeline reaching a terminal status. Emails that are already
// terminal are skipped; an email still held by a live claim is retryable so
// that attempt can finish first.
func (p *Pipeline) Abandon(ctx context.Context, emailID int64, reason string) Result {
	log := p.logger.With().Int64("email_id", emailID).Logger()

	email, err := p.store.AbandonEmail(ctx, emailID, reason)
	var held *ledger.ClaimHeldError
	switch {
	case errors.Is(err, ledger.ErrClaimMiss):
		log.Debug().Msg("email already terminal, nothing to abandon")
		return Result{Kind: KindSkipped, EmailID: emailID}
	case errors.Is(err, ledger.ErrEmailNotFound):
		log.Error().Err(err).Msg("abandon references a missing email")
		return Result{Kind: KindInvalid, EmailID: emailID, Err: err}
	case errors.As(err, &held):
		log.Info().Err(err).Dur("retry_after", held.RetryAfter).Msg("email still claimed, abandon deferred")
		return Result{Kind: KindRetryable, EmailID: emailID, Err: err, RetryAfter: held.RetryAfter}
	case err != nil:
		return Result{Kind: KindRetryable, EmailID: emailID, Err: err}
	}

	log.Warn().Str("account_id", email.AccountID).Int("attempts", email.Attempts).Str("reason", reason).
		Msg("email abandoned")
	p.notify(ctx, log, model.EventEmailFailed, email)
	return Result{Kind: KindFailed, EmailID: emailID, Attempts: email.Attempts, Err: errors.New(reason)}
}

// notify fires a webhook event. Failures are logged and otherwise ignored.
func (p *Pipeline) notify(ctx context.Context, log zerolog.Logger, event string, email *model.Email) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, email.AccountID, notify.NewEvent(event, email, p.now())); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("webhook notification failed")
	}
}

// writeContext detaches ledger writes from caller cancellation so an
// accepted send is still committed when the attempt deadline fires.
func (p *Pipeline) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
}

// MessageFor converts a stored email into a provider message.
func MessageFor(email *model.Email) provider.Message {
	msg := provider.Message{
		From:           email.From,
		To:             email.To,
		Subject:        email.Subject,
		IdempotencyKey: fmt.Sprintf("email-%d", email.ID),
	}
	if email.HTML != nil {
		msg.HTML = *email.HTML
	}
	if email.Text != nil {
		msg.Text = *email.Text
	}
	return msg
}
