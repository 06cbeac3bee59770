package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		wantTimeout time.Duration
		wantChain   []string
	}{
		{
			name:        "given no options, then traces the base transport",
			wantTimeout: 0,
			wantChain:   []string{"otel", "base"},
		},
		{
			name:        "given an attempt timeout, then sets it on the client",
			opts:        []Option{WithConfig(Config{Timeout: 10 * time.Second})},
			wantTimeout: 10 * time.Second,
			wantChain:   []string{"otel", "base"},
		},
		{
			name: "given every resilience option, then builds the full chain",
			opts: []Option{
				WithBreakerConfig(DefaultBreakerConfig()),
				WithRateLimit(DefaultRateLimitConfig()),
				WithChaos(ChaosConfig{}),
			},
			wantChain: []string{"otel", "breaker", "rate_limit", "chaos", "base"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := New(tt.opts...)

			require.NotNil(t, executor)
			assert.Equal(t, tt.wantTimeout, executor.HTTP().Timeout)
			assert.Equal(t, tt.wantChain, transportChain(executor.HTTP().Transport))
		})
	}
}

// transportChain names the layers of a transport chain from the outside in.
func transportChain(rt http.RoundTripper) []string {
	var chain []string
	for rt != nil {
		switch t := rt.(type) {
		case *otelTransport:
			chain = append(chain, "otel")
			rt = t.Unwrap()
		case *circuitBreakerTransport:
			chain = append(chain, "breaker")
			rt = t.Unwrap()
		case *rateLimitTransport:
			chain = append(chain, "rate_limit")
			rt = t.Unwrap()
		case *chaosTransport:
			chain = append(chain, "chaos")
			rt = t.Unwrap()
		default:
			chain = append(chain, "base")
			rt = nil
		}
	}
	return chain
}

func TestNew_DoesNotFollowRedirects(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer server.Close()

	executor := New()

	req, err := http.NewRequest(http.MethodPost, server.URL, nil)
	require.NoError(t, err)

	resp, err := executor.HTTP().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
	assert.Equal(t, 1, hits)
}

func TestExecutor_PoolStats(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want PoolStats
	}{
		{
			name: "given defaults, then reports the default pool",
			want: PoolStats{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialTimeout:         30 * time.Second,
				Proxied:             true,
			},
		},
		{
			name: "given custom timeouts behind the whole chain, then reports them",
			opts: []Option{
				WithConfig(Config{
					DialTimeout:           5 * time.Second,
					ResponseHeaderTimeout: 2 * time.Minute,
					MaxIdleConns:          4,
					MaxIdleConnsPerHost:   2,
					IdleConnTimeout:       time.Minute,
				}),
				WithProxyFromEnvironment(false),
				WithBreakerConfig(DefaultBreakerConfig()),
				WithRateLimit(DefaultRateLimitConfig()),
				WithChaos(ChaosConfig{}),
			},
			want: PoolStats{
				MaxIdleConns:          4,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       time.Minute,
				DialTimeout:           5 * time.Second,
				ResponseHeaderTimeout: 2 * time.Minute,
			},
		},
		{
			name: "given a custom base transport, then reports nothing",
			opts: []Option{WithBaseTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
				return nil, context.Canceled
			}))},
			want: PoolStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.opts...).PoolStats())
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
