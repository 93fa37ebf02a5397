package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/sendline/internal/ledger"
	"github.com/edvin/sendline/internal/model"
)

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

// SubmitEmail is a send request from an account.
type SubmitEmail struct {
	AccountID      string
	IdempotencyKey string
	To             string
	From           string
	Subject        string
	HTML           *string
	Text           *string
}

// EmailService creates emails and schedules their delivery.
type EmailService struct {
	db        DB
	tc        temporalclient.Client
	taskQueue string
	now       func() time.Time
}

// NewEmailService creates a new EmailService.
func NewEmailService(db DB, tc temporalclient.Client, taskQueue string) *EmailService {
	return &EmailService{db: db, tc: tc, taskQueue: taskQueue, now: time.Now}
}

// Submit records a send request and schedules its delivery. A request whose
// idempotency key was already used by the account returns the existing email
// with created=false and does not count against the quota again.
//
// The quota check is best-effort: concurrent submissions may overshoot it.
func (s *EmailService) Submit(ctx context.Context, req SubmitEmail) (email *model.Email, created bool, err error) {
	existing, err := s.getByIdempotencyKey(ctx, req.AccountID, req.IdempotencyKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		if model.IsClaimable(existing.Status) {
			if err := s.startDelivery(ctx, existing.ID); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	}

	if err := s.checkQuota(ctx, req.AccountID); err != nil {
		return nil, false, err
	}

	email, err = scanEmail(s.db.QueryRow(ctx,
		`INSERT INTO emails (account_id, idempotency_key, to_address, from_address, subject, html_body, text_body, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (account_id, idempotency_key) DO NOTHING
		 RETURNING `+emailColumns,
		req.AccountID, req.IdempotencyKey, req.To, req.From, req.Subject, req.HTML, req.Text, model.StatusPending,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost an insert race on the same key.
		existing, err := s.getByIdempotencyKey(ctx, req.AccountID, req.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert email: %w", err)
	}

	if err := s.startDelivery(ctx, email.ID); err != nil {
		return nil, false, err
	}
	return email, true, nil
}

func (s *EmailService) checkQuota(ctx context.Context, accountID string) error {
	var quota, used int64
	err := s.db.QueryRow(ctx,
		`SELECT a.monthly_quota,
		        (SELECT count(*) FROM usage_records u WHERE u.account_id = a.id AND u.month = $2)
		 FROM accounts a WHERE a.id = $1`,
		accountID, model.BillingMonth(s.now()),
	).Scan(&quota, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check quota for account %s: %w", accountID, err)
	}
	if used >= quota {
		return fmt.Errorf("account %s used %d of %d: %w", accountID, used, quota, ErrQuotaExceeded)
	}
	return nil
}

func (s *EmailService) startDelivery(ctx context.Context, emailID int64) error {
	_, err := s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        DeliveryWorkflowID(emailID),
		TaskQueue: s.taskQueue,
	}, DeliverEmailWorkflow, emailID)
	if err != nil {
		return fmt.Errorf("start %s for email %d: %w", DeliverEmailWorkflow, emailID, err)
	}
	return nil
}

func (s *EmailService) getByIdempotencyKey(ctx context.Context, accountID, key string) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email by idempotency key: %w", err)
	}
	return email, nil
}

// Get retrieves an email owned by the account.
func (s *EmailService) Get(ctx context.Context, accountID string, id int64) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE id = $1 AND account_id = $2`, id, accountID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get email %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", id, err)
	}
	return email, nil
}

// ListByAccount returns the account's emails newest first. cursor is the id
// of the last email of the previous page, 0 for the first page. status
// filters when non-empty.
func (s *EmailService) ListByAccount(ctx context.Context, accountID string, limit int, cursor int64, status string) ([]model.Email, bool, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if cursor > 0 {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}
	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, status)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var emails []model.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate emails: %w", err)
	}

	hasMore := len(emails) > limit
	if hasMore {
		emails = emails[:limit]
	}
	return emails, hasMore, nil
}

// Redrive schedules delivery again for an email still waiting for it, for
// when its workflow was lost. A running workflow is left alone. A processing
// row counts as waiting once its claim lease has expired.
func (s *EmailService) Redrive(ctx context.Context, id int64) (*model.Email, error) {
	email, err := scanEmail(s.db.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redrive email %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redrive email %d: %w", id, err)
	}
	if !s.redrivable(email) {
		return nil, fmt.Errorf("redrive email %d (status %s): %w", id, email.Status, ErrNotRedrivable)
	}
	if err := s.startDelivery(ctx, id); err != nil {
		return nil, err
	}
	return email, nil
}

func (s *EmailService) redrivable(email *model.Email) bool {
	if model.IsClaimable(email.Status) {
		return true
	}
	return email.Status == model.StatusProcessing && s.now().Sub(email.UpdatedAt) > ledger.DefaultClaimLease
}
