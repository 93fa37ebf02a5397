package activity

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/sendline/internal/pipeline"
)

// Application error types returned by the delivery activities.
const (
	ErrTypeRetryable   = "DELIVERY_RETRYABLE"
	ErrTypeFailed      = "DELIVERY_FAILED"
	ErrTypeInvalidJob  = "INVALID_JOB"
	ErrTypeAbandonFail = "ABANDON_FAILED"
)

// Processor runs the delivery pipeline for one email.
type Processor interface {
	Process(ctx context.Context, emailID int64) pipeline.Result
	Abandon(ctx context.Context, emailID int64, reason string) pipeline.Result
}

// Delivery contains the activities that drive email delivery.
type Delivery struct {
	pipeline Processor
}

// NewDelivery creates a new Delivery activity struct.
func NewDelivery(p Processor) *Delivery {
	return &Delivery{pipeline: p}
}

// AbandonEmailParams holds parameters for the AbandonEmail activity.
type AbandonEmailParams struct {
	EmailID int64  `json:"email_id"`
	Reason  string `json:"reason"`
}

// DeliverEmail runs one delivery attempt and translates the pipeline result
// into what the scheduler understands:
//   - sent / skipped → nil
//   - retryable → retryable error, redelivered after the backoff delay, or
//     once the holder's claim expires when another attempt owns the email
//   - failed / invalid → non-retryable error
func (a *Delivery) DeliverEmail(ctx context.Context, emailID int64) error {
	res := a.pipeline.Process(ctx, emailID)
	switch res.Kind {
	case pipeline.KindSent, pipeline.KindSkipped:
		return nil
	case pipeline.KindRetryable:
		return retryableError(res, ErrTypeRetryable)
	case pipeline.KindFailed:
		return temporal.NewNonRetryableApplicationError(errText(res), ErrTypeFailed, res.Err)
	default:
		return temporal.NewNonRetryableApplicationError(errText(res), ErrTypeInvalidJob, res.Err)
	}
}

// AbandonEmail marks an email failed after the scheduler gave up on it.
// Emails that already reached a terminal status are left alone.
func (a *Delivery) AbandonEmail(ctx context.Context, params AbandonEmailParams) error {
	res := a.pipeline.Abandon(ctx, params.EmailID, params.Reason)
	if res.Kind == pipeline.KindRetryable {
		return retryableError(res, ErrTypeAbandonFail)
	}
	return nil
}

// retryableError asks for redelivery, overriding the policy's next interval
// when the result knows when the email becomes claimable again.
func retryableError(res pipeline.Result, errType string) error {
	if res.RetryAfter <= 0 {
		return temporal.NewApplicationError(errText(res), errType, res.Err)
	}
	return temporal.NewApplicationErrorWithOptions(errText(res), errType, temporal.ApplicationErrorOptions{
		Cause: res.Err,
		// One extra second so the redelivery lands after the lease boundary.
		NextRetryDelay: res.RetryAfter + time.Second,
	})
}

func errText(res pipeline.Result) string {
	if res.Err == nil {
		return "email " + res.Kind.String()
	}
	return res.Err.Error()
}
