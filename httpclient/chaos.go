package httpclient

import (
	"math/rand/v2"
	"time"
)

// ChaosConfig configures fault injection for resilience testing.
//
// It lets a staging environment verify that renders survive a flaky
// Docmosis endpoint: unavailable responses are retried, dropped connections
// are reported, slow responses trip the timeouts.
//
// Example usage:
//
//	executor := httpclient.New(
//	    httpclient.WithChaos(httpclient.ChaosConfig{
//	        Latency:         200 * time.Millisecond,
//	        UnavailableRate: 0.2, // 20% of attempts answer 503
//	    }),
//	)
type ChaosConfig struct {
	// Latency adds a fixed delay to all attempts.
	// Default: 0
	Latency time.Duration

	// LatencyJitter adds a random delay between 0 and LatencyJitter on top
	// of Latency.
	// Default: 0
	LatencyJitter time.Duration

	// ErrorRate is the probability (0.0-1.0) of failing an attempt with a
	// simulated dial error.
	// Default: 0.0
	ErrorRate float64

	// UnavailableRate is the probability (0.0-1.0) of answering an attempt
	// with a 503 and a Docmosis error body instead of sending it.
	// Default: 0.0
	UnavailableRate float64

	// TimeoutRate is the probability (0.0-1.0) of blocking an attempt until
	// its context is done. An attempt whose context has no deadline fails
	// at once with os.ErrDeadlineExceeded.
	// Default: 0.0
	TimeoutRate float64
}

// Delay returns the total delay to apply, including jitter.
func (c ChaosConfig) Delay() time.Duration {
	delay := c.Latency
	if c.LatencyJitter > 0 {
		delay += rand.N(c.LatencyJitter) //nolint:gosec
	}
	return delay
}

// ShouldInjectError returns true if an error should be injected based on ErrorRate.
func (c ChaosConfig) ShouldInjectError() bool {
	return roll(c.ErrorRate)
}

// ShouldInjectUnavailable returns true if a 503 should be injected based on UnavailableRate.
func (c ChaosConfig) ShouldInjectUnavailable() bool {
	return roll(c.UnavailableRate)
}

// ShouldInjectTimeout returns true if a timeout should be simulated based on TimeoutRate.
func (c ChaosConfig) ShouldInjectTimeout() bool {
	return roll(c.TimeoutRate)
}

func roll(rate float64) bool {
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate //nolint:gosec
}
