package httpclient

import "net/http"

// RoundTripper mirrors http.RoundTripper so mockery can generate a mock for it.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// Compile-time interface checks.
var (
	_ RoundTripper = (*MockTransport)(nil)
	_ RoundTripper = (*chaosTransport)(nil)
	_ RoundTripper = (*rateLimitTransport)(nil)
	_ RoundTripper = (*circuitBreakerTransport)(nil)
)
