package hook

import (
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoffStep = 2 * time.Second
)

// Policy bounds the retry loop. The wait after failed attempt n is
// n * BackoffStep, so delays grow linearly and never decrease.
type Policy struct {
	MaxAttempts int
	BackoffStep time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BackoffStep: DefaultBackoffStep,
	}
}

// Delay returns how long to wait after the given failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BackoffStep <= 0 {
		return 0
	}

	return time.Duration(attempt) * p.BackoffStep
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}

	if p.BackoffStep < 0 {
		return errors.New("backoff step must not be negative")
	}

	return nil
}
