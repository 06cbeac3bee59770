package httpclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig holds the retry behavior of a single call.
//
// Retries use a fixed delay: every wait between two attempts lasts exactly
// RetryDelay. There is no exponential growth and no jitter.
//
// Example usage:
//
//	call := httpclient.Call{
//	    URL:         "https://eu1.dws4.docmosis.com/api/convert",
//	    RetryConfig: httpclient.RetryConfig{MaxTries: 3, RetryDelay: time.Second},
//	    Payload:     payload,
//	}
type RetryConfig struct {
	// MaxTries is the maximum number of physical attempts, including the
	// first one. Values below 1 are treated as 1 (no retries).
	// Default: 3
	MaxTries int

	// RetryDelay is the fixed wait between two attempts.
	// Negative values are treated as 0.
	// Default: 1s
	RetryDelay time.Duration
}

// Default values for RetryConfig.
const (
	// DefaultMaxTries is the default number of attempts per call.
	DefaultMaxTries = 3

	// DefaultRetryDelay is the default wait between attempts.
	DefaultRetryDelay = 1 * time.Second
)

// DefaultRetryConfig returns the default retry behavior:
// up to 3 attempts, 1s apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:   DefaultMaxTries,
		RetryDelay: DefaultRetryDelay,
	}
}

// NoRetryConfig returns a configuration that makes exactly one attempt.
func NoRetryConfig() RetryConfig {
	return RetryConfig{MaxTries: 1}
}

// IsEnabled returns true if more than one attempt is allowed.
func (c RetryConfig) IsEnabled() bool {
	return c.MaxTries > 1
}

// normalized clamps the configuration to valid values.
func (c RetryConfig) normalized() RetryConfig {
	if c.MaxTries < 1 {
		c.MaxTries = 1
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// retryOptions returns the cenkalti/backoff options driving the attempt loop.
func (c RetryConfig) retryOptions(notify backoff.Notify) []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(c.RetryDelay)),
		backoff.WithMaxTries(uint(c.MaxTries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	}
}
