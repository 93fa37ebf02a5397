// Package workflow holds the Temporal workflows that schedule email delivery.
package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sendline/internal/activity"
	"github.com/edvin/sendline/internal/pipeline"
)

// Activity names as registered from activity.Delivery.
const (
	DeliverEmailActivity = "DeliverEmail"
	AbandonEmailActivity = "AbandonEmail"
)

// DeliverEmailTimeout bounds one DeliverEmail attempt: provider timeout plus
// webhook retries plus ledger writes. The ledger claim lease must outlive it.
const DeliverEmailTimeout = 2 * time.Minute

// DeliveryRetryPolicy is the redelivery schedule for DeliverEmail: five
// attempts, waiting 2s, 4s, 8s and 16s in between.
func DeliveryRetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        pipeline.InitialBackoff,
		BackoffCoefficient:     pipeline.BackoffCoefficient,
		MaximumInterval:        pipeline.Backoff(pipeline.DefaultMaxAttempts - 1),
		MaximumAttempts:        pipeline.DefaultMaxAttempts,
		NonRetryableErrorTypes: []string{activity.ErrTypeFailed, activity.ErrTypeInvalidJob},
	}
}

func deliveryActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: DeliverEmailTimeout,
		RetryPolicy:         DeliveryRetryPolicy(),
	})
}

// DeliverEmailWorkflow delivers one email. The DeliverEmail activity owns the
// status transitions; the workflow only decides when to run it again. When
// the scheduler runs out of attempts before the email is terminal, the email
// is abandoned so it does not stay in retrying forever.
func DeliverEmailWorkflow(ctx workflow.Context, emailID int64) error {
	err := workflow.ExecuteActivity(deliveryActivityCtx(ctx), DeliverEmailActivity, emailID).Get(ctx, nil)
	if err == nil {
		return nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case activity.ErrTypeFailed:
			// The pipeline already wrote failed and sent email.failed.
			return err
		case activity.ErrTypeInvalidJob:
			workflow.GetLogger(ctx).Error("delivery job references a missing email", "emailID", emailID)
			return err
		}
	}

	_ = abandonEmail(ctx, emailID, err)
	return err
}
