package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// defaultBreakerName identifies the breaker when no service name is set.
const defaultBreakerName = "docmosis"

// circuitBreakerTransport is a RoundTripper that wraps attempts in a circuit breaker.
type circuitBreakerTransport struct {
	breaker    CircuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *internalConfig
	name       string
}

// errSyntheticFailure tells the breaker that an attempt failed. The attempt's
// own response or error is still handed to the caller.
var errSyntheticFailure = errors.New("synthetic failure")

// breakerResult carries an attempt through the breaker unchanged.
type breakerResult struct {
	resp *http.Response
	err  error
}

// Unwrap returns the wrapped transport.
func (t *circuitBreakerTransport) Unwrap() http.RoundTripper {
	return t.next
}

// RoundTrip implements http.RoundTripper.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	res, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose

		result := breakerResult{resp: resp, err: err}
		if t.classifier(resp, err) {
			return result, errSyntheticFailure
		}
		return result, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "rejected")
			return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, t.name, err)
		}

		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")

		if result, ok := res.(breakerResult); ok {
			return result.resp, result.err
		}
		return nil, err
	}

	t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "success")

	if result, ok := res.(breakerResult); ok {
		return result.resp, result.err
	}

	return nil, errors.New("circuit breaker returned unknown response type")
}

// newCircuitBreakerTransport creates a new circuit breaker transport.
// It returns next unchanged when no breaker is configured.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}

	bc := *cfg.BreakerConfig
	if bc.Classifier == nil {
		bc.Classifier = DefaultBreakerClassifier
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultBreakerName
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: readyToTrip(bc),
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			cfg.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb CircuitBreaker
	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[interface{}](bc.Store, st)
		if err != nil {
			// A local breaker still protects this process.
			cfg.Logger.Warn().Err(err).Str("breaker", name).
				Msg("distributed circuit breaker unavailable, using local breaker")
			cb = gobreaker.NewCircuitBreaker[interface{}](st)
		} else {
			cb = dcb
		}
	} else {
		cb = gobreaker.NewCircuitBreaker[interface{}](st)
	}

	return &circuitBreakerTransport{
		breaker:    cb,
		next:       next,
		classifier: bc.Classifier,
		cfg:        cfg,
		name:       name,
	}
}

// readyToTrip builds the trip rule from bc.
func readyToTrip(bc BreakerConfig) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if bc.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= bc.ConsecutiveFailures {
			return true
		}
		if bc.FailureThreshold > 0 && counts.Requests < bc.FailureThreshold {
			return false
		}
		if bc.FailureRatio > 0 && counts.Requests > 0 {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureRatio
		}
		return false
	}
}
