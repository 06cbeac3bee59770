package httpclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side rate limiting of attempts.
//
// Docmosis cloud plans cap the request rate per access key. Limiting on the
// client keeps bursts of renders from being rejected by the service.
// Retries draw from the same budget as first attempts.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained attempt rate.
	// Zero or less disables rate limiting.
	RequestsPerSecond float64

	// Burst is the maximum number of attempts allowed at once.
	// Values below 1 are treated as 1.
	Burst int

	// WaitOnLimit determines behavior when the limit is hit.
	// If true, attempts wait for a token, respecting the context.
	// If false, attempts fail immediately with ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 10 attempts per second with a burst of 5,
// waiting for a token when the limit is hit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned when an attempt is rejected by the rate limiter.
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitTransport implements http.RoundTripper with rate limiting.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport creates a rate-limited transport wrapper.
func newRateLimitTransport(next http.RoundTripper, cfg RateLimitConfig) http.RoundTripper {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

// Unwrap returns the wrapped transport.
func (t *rateLimitTransport) Unwrap() http.RoundTripper {
	return t.next
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.wait {
		if err := t.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			// Wait fails without waiting when the deadline is too close.
			return nil, ErrRateLimited
		}
	} else if !t.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return t.next.RoundTrip(req)
}
