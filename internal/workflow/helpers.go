package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/sendline/internal/activity"
)

// abandonEmail marks the email failed with the scheduler's last error.
// Callers typically ignore the returned error since the delivery error is the
// one reported.
func abandonEmail(ctx workflow.Context, emailID int64, cause error) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	})
	err := workflow.ExecuteActivity(ctx, AbandonEmailActivity, activity.AbandonEmailParams{
		EmailID: emailID,
		Reason:  "delivery abandoned: " + cause.Error(),
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("abandon email", "emailID", emailID, "error", err)
	}
	return err
}
