package pipeline

import "time"

const (
	// DefaultMaxAttempts is the number of provider attempts before an email
	// is marked failed.
	DefaultMaxAttempts = 5
	// InitialBackoff is the delay before the second attempt.
	InitialBackoff = 2 * time.Second
	// BackoffCoefficient multiplies the delay after every failed attempt.
	BackoffCoefficient = 2.0
)

// Backoff returns how long to wait after the given failed attempt (1-based)
// before the next one: 2s, 4s, 8s, 16s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * BackoffCoefficient)
	}
	return d
}
