package mailctl

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/edvin/sendline/internal/model"
)

// EmailReader loads an email by id across accounts. *ledger.Store satisfies it.
type EmailReader interface {
	GetEmail(ctx context.Context, id int64) (*model.Email, error)
	CountUsageRecords(ctx context.Context, emailID int64) (int, error)
}

// Redriver restarts delivery for a stuck email. *core.EmailService satisfies it.
type Redriver interface {
	Redrive(ctx context.Context, id int64) (*model.Email, error)
}

// Status prints the delivery state of one email.
func Status(ctx context.Context, emails EmailReader, id int64, out io.Writer) error {
	email, err := emails.GetEmail(ctx, id)
	if err != nil {
		return fmt.Errorf("get email %d: %w", id, err)
	}
	usage, err := emails.CountUsageRecords(ctx, id)
	if err != nil {
		return fmt.Errorf("count usage records for %d: %w", id, err)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", email.ID)
	fmt.Fprintf(tw, "Account:\t%s\n", email.AccountID)
	fmt.Fprintf(tw, "To:\t%s\n", email.To)
	fmt.Fprintf(tw, "Subject:\t%s\n", email.Subject)
	fmt.Fprintf(tw, "Status:\t%s\n", email.Status)
	fmt.Fprintf(tw, "Attempts:\t%d\n", email.Attempts)
	if email.LastError != nil {
		fmt.Fprintf(tw, "Last error:\t%s\n", *email.LastError)
	}
	if email.ProviderMessageID != nil {
		fmt.Fprintf(tw, "Provider id:\t%s\n", *email.ProviderMessageID)
	}
	if email.SentAt != nil {
		fmt.Fprintf(tw, "Sent at:\t%s\n", email.SentAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Usage records:\t%d\n", usage)
	return tw.Flush()
}

// Redrive restarts the delivery workflow for a pending or retrying email.
func Redrive(ctx context.Context, r Redriver, id int64, out io.Writer) error {
	email, err := r.Redrive(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Email %d redriven (status %s, attempts %d)\n", email.ID, email.Status, email.Attempts)
	return nil
}
