package httpclient

import (
	"net/http"
	"time"
)

// PoolStats is a snapshot of the connection pool and timeout settings of
// the base transport. It is useful to check what an Environment's connect
// and read timeouts resolved to.
//
// Example usage:
//
//	stats := executor.PoolStats()
//	fmt.Printf("connect timeout: %s, read timeout: %s\n",
//	    stats.DialTimeout, stats.ResponseHeaderTimeout)
type PoolStats struct {
	// MaxIdleConns is the maximum idle connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept before closing.
	IdleConnTimeout time.Duration

	// DialTimeout is the connect timeout of the executor's configuration.
	DialTimeout time.Duration

	// ResponseHeaderTimeout is the read timeout.
	ResponseHeaderTimeout time.Duration

	// Proxied is true when a proxy function is installed.
	Proxied bool
}

// PoolStats returns the pool settings of the base transport.
//
// It returns empty PoolStats when the base transport is not an
// *http.Transport, for example with WithMockTransport.
func (e *Executor) PoolStats() PoolStats {
	if e.httpClient == nil || e.httpClient.Transport == nil {
		return PoolStats{}
	}

	transport := unwrapTransport(e.httpClient.Transport)
	if transport == nil {
		return PoolStats{}
	}

	return PoolStats{
		MaxIdleConns:          transport.MaxIdleConns,
		MaxIdleConnsPerHost:   transport.MaxIdleConnsPerHost,
		IdleConnTimeout:       transport.IdleConnTimeout,
		DialTimeout:           e.config.httpConfig.DialTimeout,
		ResponseHeaderTimeout: transport.ResponseHeaderTimeout,
		Proxied:               transport.Proxy != nil,
	}
}

// unwrapTransport walks the transport chain down to the base http.Transport.
func unwrapTransport(rt http.RoundTripper) *http.Transport {
	for {
		switch t := rt.(type) {
		case *http.Transport:
			return t
		case interface{ Unwrap() http.RoundTripper }:
			rt = t.Unwrap()
		default:
			return nil
		}
	}
}
