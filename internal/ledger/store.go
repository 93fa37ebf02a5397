// Package ledger is the relational store behind the delivery pipeline: the
// emails table and the append-only usage_records billing ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/sendline/internal/model"
)

var (
	// ErrClaimMiss means the email exists but is not in a claimable status,
	// usually because another worker already handled it.
	ErrClaimMiss = errors.New("email not claimable")
	// ErrEmailNotFound means the job reference does not point at an email row.
	ErrEmailNotFound = errors.New("email not found")
	// ErrNotOwner means a status write was rejected because the email is no
	// longer in the status the caller expected to own.
	ErrNotOwner = errors.New("email not owned by caller")
	// ErrAccountNotFound means the account id does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrClaimHeld means the email is processing under a claim that has not
	// expired. Its holder may still be working, or may have died mid-attempt.
	ErrClaimHeld = errors.New("email claim held by another attempt")
)

// DefaultClaimLease is how long a processing claim is honoured. It must be
// longer than a live attempt can hold the row: the DeliverEmail
// StartToClose timeout (2m) plus the ledger write timeout after a send.
const DefaultClaimLease = 2*time.Minute + 30*time.Second

// ClaimHeldError reports a live claim and how long until it expires.
type ClaimHeldError struct {
	EmailID    int64
	RetryAfter time.Duration
}

func (e *ClaimHeldError) Error() string {
	return fmt.Sprintf("email %d is processing, claim expires in %s", e.EmailID, e.RetryAfter)
}

func (e *ClaimHeldError) Is(target error) bool { return target == ErrClaimHeld }

// DB defines the database operations used by the Store.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements the ledger contract used by the delivery pipeline.
type Store struct {
	db DB
	// claimLease, when positive, lets a claim take over (or abandon) an email
	// left in processing for longer than the lease by a worker that died
	// mid-attempt.
	claimLease time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClaimLease sets how long a processing claim is honoured before another
// worker may reclaim the email. The default is DefaultClaimLease; zero
// disables reclaiming.
func WithClaimLease(d time.Duration) Option {
	return func(s *Store) { s.claimLease = d }
}

// NewStore creates a new Store.
func NewStore(db DB, opts ...Option) *Store {
	s := &Store{db: db, claimLease: DefaultClaimLease}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const emailColumns = `id, account_id, idempotency_key, to_address, from_address, subject, html_body, text_body,
	status, attempts, last_error, provider_message_id, sent_at, created_at, updated_at`

func scanEmail(row pgx.Row) (*model.Email, error) {
	var e model.Email
	err := row.Scan(&e.ID, &e.AccountID, &e.IdempotencyKey, &e.To, &e.From, &e.Subject, &e.HTML, &e.Text,
		&e.Status, &e.Attempts, &e.LastError, &e.ProviderMessageID, &e.SentAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ClaimEmail atomically moves an email from pending or retrying to processing
// and returns the claimed row. Exactly one of any number of concurrent callers
// gets the row. A row in processing past the claim lease is taken over.
//
// On a miss the error says why: ErrClaimHeld (as *ClaimHeldError) while
// another claim is live, ErrClaimMiss for a terminal email, and
// ErrEmailNotFound when the id has no row.
func (s *Store) ClaimEmail(ctx context.Context, id int64) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx,
		`UPDATE emails SET status = $2, updated_at = now()
		 WHERE id = $1
		   AND (status IN ($3, $4)
		        OR ($5::bigint > 0 AND status = $2 AND updated_at < now() - make_interval(secs => $5::bigint)))
		 RETURNING `+emailColumns,
		id, model.StatusProcessing, model.StatusPending, model.StatusRetrying, s.leaseSeconds(),
	))
	if err == nil {
		return email, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claim email %d: %w", id, err)
	}
	return nil, s.missReason(ctx, "claim", id)
}

func (s *Store) leaseSeconds() int64 {
	return int64(s.claimLease / time.Second)
}

// missReason explains why a conditional update on an email matched no row.
func (s *Store) missReason(ctx context.Context, op string, id int64) error {
	var (
		status    string
		remaining float64
	)
	err := s.db.QueryRow(ctx,
		`SELECT status,
		        GREATEST(0, EXTRACT(EPOCH FROM updated_at + make_interval(secs => $2::bigint) - now()))::float8
		 FROM emails WHERE id = $1`,
		id, s.leaseSeconds(),
	).Scan(&status, &remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s email %d: %w", op, id, ErrEmailNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s email %d: look up status: %w", op, id, err)
	}
	if status == model.StatusProcessing {
		return fmt.Errorf("%s email %d: %w", op, id, &ClaimHeldError{
			EmailID:    id,
			RetryAfter: time.Duration(math.Ceil(remaining)) * time.Second,
		})
	}
	return fmt.Errorf("%s email %d (status %s): %w", op, id, status, ErrClaimMiss)
}

// CommitSent records a provider acceptance. In one transaction it appends the
// usage record for the email's billing month (a duplicate is a silent no-op)
// and marks the email sent. Replaying the commit for an already sent email
// keeps the original message id and still leaves exactly one usage record.
// If the email is neither processing nor sent, nothing is written and
// ErrNotOwner is returned.
func (s *Store) CommitSent(ctx context.Context, email *model.Email, messageID string, sentAt time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit for email %d: %w", email.ID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO usage_records (account_id, email_id, month)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		email.AccountID, email.ID, model.BillingMonth(sentAt),
	); err != nil {
		return fmt.Errorf("insert usage record for email %d: %w", email.ID, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE emails
		 SET status = $2,
		     provider_message_id = COALESCE(provider_message_id, $3),
		     sent_at = COALESCE(sent_at, $4),
		     last_error = NULL,
		     updated_at = now()
		 WHERE id = $1 AND status IN ($5, $2)`,
		email.ID, model.StatusSent, messageID, sentAt, model.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark email %d sent: %w", email.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark email %d sent: %w", email.ID, ErrNotOwner)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit email %d: %w", email.ID, err)
	}
	return nil
}

// FailureOutcome is the email state after a failed attempt was recorded.
type FailureOutcome struct {
	Attempts int
	Status   string
}

// RecordFailure counts a failed attempt for an email currently in processing.
// The status becomes retrying while attempts stay below maxAttempts, and
// failed once they reach it. The increment happens in SQL so concurrent
// writers can never lose an attempt.
func (s *Store) RecordFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) (FailureOutcome, error) {
	var out FailureOutcome
	err := s.db.QueryRow(ctx,
		`UPDATE emails
		 SET attempts = attempts + 1,
		     last_error = $2,
		     status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE $5 END,
		     updated_at = now()
		 WHERE id = $1 AND status = $6
		 RETURNING attempts, status`,
		id, errMsg, maxAttempts, model.StatusFailed, model.StatusRetrying, model.StatusProcessing,
	).Scan(&out.Attempts, &out.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return FailureOutcome{}, fmt.Errorf("record failure for email %d: %w", id, ErrNotOwner)
	}
	if err != nil {
		return FailureOutcome{}, fmt.Errorf("record failure for email %d: %w", id, err)
	}
	return out, nil
}

// AbandonEmail marks a non-terminal email failed, for when the scheduler gave
// up on it without the pipeline reaching a terminal status (for example the
// worker kept dying mid-attempt). A processing email is only abandoned once
// its claim lease has expired, so a slow but live attempt can still commit;
// until then *ClaimHeldError is returned. Terminal emails are left untouched
// and ErrClaimMiss is returned.
func (s *Store) AbandonEmail(ctx context.Context, id int64, reason string) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx,
		`UPDATE emails
		 SET status = $2, last_error = COALESCE(last_error, $3), updated_at = now()
		 WHERE id = $1
		   AND (status IN ($4, $5)
		        OR (status = $6 AND ($7::bigint <= 0 OR updated_at < now() - make_interval(secs => $7::bigint))))
		 RETURNING `+emailColumns,
		id, model.StatusFailed, reason, model.StatusPending, model.StatusRetrying, model.StatusProcessing, s.leaseSeconds(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missReason(ctx, "abandon", id)
	}
	if err != nil {
		return nil, fmt.Errorf("abandon email %d: %w", id, err)
	}
	return email, nil
}

// GetEmail retrieves an email by its ID.
func (s *Store) GetEmail(ctx context.Context, id int64) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get email %d: %w", id, ErrEmailNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", id, err)
	}
	return email, nil
}

// WebhookURL returns the account's webhook URL, or "" when none is configured.
func (s *Store) WebhookURL(ctx context.Context, accountID string) (string, error) {
	var url *string
	err := s.db.QueryRow(ctx, `SELECT webhook_url FROM accounts WHERE id = $1`, accountID).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("get webhook url for account %s: %w", accountID, ErrAccountNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get webhook url for account %s: %w", accountID, err)
	}
	if url == nil {
		return "", nil
	}
	return *url, nil
}

// CountUsageRecords returns how many usage records exist for an email. It is
// zero or one by construction.
func (s *Store) CountUsageRecords(ctx context.Context, emailID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM usage_records WHERE email_id = $1`, emailID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage records for email %d: %w", emailID, err)
	}
	return n, nil
}
