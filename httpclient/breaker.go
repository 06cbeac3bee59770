package httpclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// ErrCircuitOpen is returned for attempts rejected by an open circuit breaker.
// It is a transport error, so the call fails with an *ExecutionError.
var ErrCircuitOpen = errors.New("circuit breaker open")

// NewRedisStore creates a SharedDataStore backed by Redis, so every process
// rendering against the same Docmosis endpoint shares one breaker state.
//
// Usage:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	store := httpclient.NewRedisStore(rdb)
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// CircuitBreaker is the interface used by circuit breaker transport.
// It matches gobreaker.CircuitBreaker signature.
type CircuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
}

// BreakerClassifier reports whether an attempt counts as a failure for the breaker.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig holds the configuration for the circuit breaker.
//
// The breaker wraps each physical attempt, so a call retried three times
// counts three times.
type BreakerConfig struct {
	// MaxRequests is the number of attempts allowed through while half-open.
	// If 0, one attempt is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts
	// are cleared. If 0, counts are never cleared while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	// gobreaker uses 60s if 0.
	Timeout time.Duration

	// FailureThreshold is the minimum number of attempts before the
	// failure ratio is considered.
	// Default: 20
	FailureThreshold uint32

	// FailureRatio trips the breaker once reached (0.0 - 1.0).
	// Default: 0.5
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after this many failures in a row.
	// If 0, this rule is disabled.
	ConsecutiveFailures uint32

	// Store shares breaker state between processes. Nil keeps it in memory.
	Store gobreaker.SharedDataStore

	// Classifier decides which attempts are failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is invoked when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns an in-memory breaker configuration:
//   - Interval: 10s
//   - Timeout: 30s
//   - FailureThreshold: 20
//   - FailureRatio: 0.5
//   - ConsecutiveFailures: 5
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             30 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig backed by store.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts transport errors and 501 to 599 responses
// as failures.
//
// A 500 is an error reported by the document engine for this particular
// request, such as a broken template, and says nothing about the health of
// the endpoint. Neither do 4xx responses or caller cancellations.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return !isCanceled(err)
	}
	return resp != nil && isUnavailableStatus(resp.StatusCode)
}
