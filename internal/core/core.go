// Package core holds the submission gateway services: the account-facing
// operations that create emails and read their status and usage.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DeliverEmailWorkflow is the registered name of the delivery workflow.
const DeliverEmailWorkflow = "DeliverEmailWorkflow"

var (
	// ErrNotFound means the requested row does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded means the account already used its monthly quota.
	ErrQuotaExceeded = errors.New("monthly quota exceeded")
	// ErrUnauthorized means an API key is unknown or revoked.
	ErrUnauthorized = errors.New("invalid api key")
	// ErrNotRedrivable means the email is not waiting for delivery.
	ErrNotRedrivable = errors.New("email is not waiting for delivery")
)

// DB defines the database operations used by the services.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DeliveryWorkflowID returns the workflow id for an email. Starting a second
// workflow with the same id while one is running returns the running one.
func DeliveryWorkflowID(emailID int64) string {
	return fmt.Sprintf("email-%d", emailID)
}
