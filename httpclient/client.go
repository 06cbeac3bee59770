package httpclient

import (
	"net/http"
)

// Executor sends Docmosis calls with retries, tracing and metrics.
//
// An Executor holds no per-call state and is safe for concurrent use.
// Create one with New():
//
//	executor := httpclient.New(
//	    httpclient.WithServiceName("invoice-renderer"),
//	    httpclient.WithLogger(logger),
//	)
//
//	env, err := executor.Do(ctx, httpclient.Call{
//	    Service:     "convert",
//	    URL:         "https://eu1.dws4.docmosis.com/api/convert",
//	    RetryConfig: httpclient.DefaultRetryConfig(),
//	    Payload:     payload,
//	})
type Executor struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all executor configuration.
	config *internalConfig
}

// HTTP returns the underlying *http.Client.
//
// Requests sent through it go through the same transport chain but are
// never retried.
func (e *Executor) HTTP() *http.Client {
	return e.httpClient
}

// New creates an Executor with production-ready defaults and OpenTelemetry
// instrumentation.
//
// Every physical attempt passes through, from the outside in:
//   - an OpenTelemetry client span
//   - the circuit breaker, when configured
//   - the rate limiter, when configured
//   - chaos injection, when configured
//   - the base transport
//
// Redirects are not followed: a POST must not silently turn into a GET.
func New(opts ...Option) *Executor {
	cfg := newConfig(opts...)

	var transport http.RoundTripper = cfg.buildTransport()
	if cfg.Chaos != nil {
		transport = newChaosTransport(transport, *cfg.Chaos)
	}
	transport = newRateLimitTransport(transport, cfg.RateLimit)
	transport = newCircuitBreakerTransport(transport, cfg)
	instrumented := newOtelTransport(transport, cfg)

	httpClient := &http.Client{
		Transport: instrumented,
		Timeout:   cfg.httpConfig.Timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Executor{
		httpClient: httpClient,
		config:     cfg,
	}
}
