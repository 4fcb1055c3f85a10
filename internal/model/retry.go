package model

import (
	"fmt"
	"time"
)

// RetryPolicy controls how many attempts a delivery gets and how long
// to wait between them.
type RetryPolicy struct {
	MaxRetries         int           `json:"max_retries" db:"max_retries"`
	RetryDelay         time.Duration `json:"retry_delay" db:"retry_delay"`
	ExponentialBackoff bool          `json:"exponential_backoff" db:"exponential_backoff"`
}

func NewRetryPolicy(maxRetries int, retryDelay time.Duration, exponential bool) (RetryPolicy, error) {
	if maxRetries < 0 {
		return RetryPolicy{}, fmt.Errorf("max retries cannot be negative")
	}
	if retryDelay < 0 {
		return RetryPolicy{}, fmt.Errorf("retry delay cannot be negative")
	}
	return RetryPolicy{
		MaxRetries:         maxRetries,
		RetryDelay:         retryDelay,
		ExponentialBackoff: exponential,
	}, nil
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, RetryDelay: time.Second, ExponentialBackoff: true}
}

// DelayForAttempt returns the wait before attempt n (1-based).
// Exponential policies double the base delay for each prior attempt.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	if !p.ExponentialBackoff {
		return p.RetryDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	return p.RetryDelay * time.Duration(1<<(attempt-1))
}
