package pipeline

import (
	"fmt"
	"time"
)

// Kind classifies the outcome of one delivery attempt.
type Kind int

const (
	// KindSent means the provider accepted the email and the usage record and
	// status were committed.
	KindSent Kind = iota + 1
	// KindSkipped means there was nothing to do: another worker holds or has
	// finished the email.
	KindSkipped
	// KindRetryable means the attempt failed, or another attempt still holds
	// the email, and it should be redelivered after the backoff delay (or
	// after RetryAfter when set).
	KindRetryable
	// KindFailed means the email reached the failed status and must not be
	// redelivered.
	KindFailed
	// KindInvalid means the job points at an email that does not exist.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindSent:
		return "sent"
	case KindSkipped:
		return "skipped"
	case KindRetryable:
		return "retryable"
	case KindFailed:
		return "failed"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of Process. Err is set for Retryable, Failed and
// Invalid results.
type Result struct {
	Kind      Kind
	EmailID   int64
	Attempts  int
	MessageID string
	Err       error
	// RetryAfter is the earliest useful redelivery delay, set when the email
	// is held by a claim that has not expired yet.
	RetryAfter time.Duration
}
