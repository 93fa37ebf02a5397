package workflow

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"
)

// ErrorTypingInterceptor logs failed activity attempts and gives untyped
// activity errors the activity name as their type, so the Temporal UI shows
// which activity failed instead of a generic ApplicationError.
type ErrorTypingInterceptor struct {
	interceptor.WorkerInterceptorBase
	logger zerolog.Logger
}

// NewErrorTypingInterceptor creates the interceptor.
func NewErrorTypingInterceptor(logger zerolog.Logger) *ErrorTypingInterceptor {
	return &ErrorTypingInterceptor{logger: logger.With().Str("component", "activity").Logger()}
}

func (e *ErrorTypingInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	i := &errorTypingActivityInterceptor{logger: e.logger}
	i.Next = next
	return i
}

type errorTypingActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	logger zerolog.Logger
}

func (e *errorTypingActivityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	result, err := e.Next.ExecuteActivity(ctx, in)
	if err == nil {
		return result, nil
	}

	info := activity.GetInfo(ctx)
	e.logger.Warn().Err(err).
		Str("activity", info.ActivityType.Name).
		Int32("attempt", info.Attempt).
		Str("workflow_id", info.WorkflowExecution.ID).
		Msg("activity attempt failed")

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return result, err
	}
	return result, temporal.NewApplicationError(err.Error(), info.ActivityType.Name, err)
}
