package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptorChain_ApplyRequestInterceptors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name         string
		interceptors []RequestInterceptor
		wantErr      assert.ErrorAssertionFunc
		wantHeaders  map[string]string
	}{
		{
			name:        "given empty chain, then does nothing",
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{},
		},
		{
			name: "given header interceptors, then runs them in order",
			interceptors: []RequestInterceptor{
				HeaderInterceptor("X-Route", "a"),
				HeaderInterceptor("X-Route", "b"),
				HeaderInterceptor("X-Tenant", "acme"),
			},
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{"X-Route": "b", "X-Tenant": "acme"},
		},
		{
			name: "given failing interceptor, then stops the chain",
			interceptors: []RequestInterceptor{
				func(*http.Request) error { return errBoom },
				HeaderInterceptor("X-Route", "a"),
			},
			wantErr:     assert.Error,
			wantHeaders: map[string]string{"X-Route": ""},
		},
		{
			name: "given static bearer token, then sets Authorization",
			interceptors: []RequestInterceptor{
				AuthBearerInterceptor("secret"),
			},
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{"Authorization": "Bearer secret"},
		},
		{
			name: "given token func, then sets Authorization from it",
			interceptors: []RequestInterceptor{
				AuthBearerFuncInterceptor(func() (string, error) { return "fresh", nil }),
			},
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{"Authorization": "Bearer fresh"},
		},
		{
			name: "given failing token func, then returns its error",
			interceptors: []RequestInterceptor{
				AuthBearerFuncInterceptor(func() (string, error) { return "", errBoom }),
			},
			wantErr:     assert.Error,
			wantHeaders: map[string]string{"Authorization": ""},
		},
		{
			name: "given correlation id, then sets the header",
			interceptors: []RequestInterceptor{
				CorrelationIDInterceptor("X-Correlation-Id", func(*http.Request) string { return "corr-1" }),
			},
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{"X-Correlation-Id": "corr-1"},
		},
		{
			name: "given empty correlation id, then skips the header",
			interceptors: []RequestInterceptor{
				CorrelationIDInterceptor("X-Correlation-Id", func(*http.Request) string { return "" }),
			},
			wantErr:     assert.NoError,
			wantHeaders: map[string]string{"X-Correlation-Id": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewInterceptorChain()
			for _, i := range tt.interceptors {
				chain.AddRequestInterceptor(i)
			}

			req, _ := http.NewRequest(http.MethodPost, "http://example.com/api/convert", nil)
			tt.wantErr(t, chain.ApplyRequestInterceptors(req))

			for k, v := range tt.wantHeaders {
				assert.Equal(t, v, req.Header.Get(k), k)
			}
		})
	}
}

func TestExecutor_RequestInterceptors(t *testing.T) {
	t.Run("given interceptor, then applies it to every attempt", func(t *testing.T) {
		var calls int
		mockTransport := NewMockTransport().
			EnqueueResponse(http.StatusServiceUnavailable, "").
			EnqueueResponse(http.StatusOK, "ok")

		executor := New(
			WithMockTransport(mockTransport),
			WithRequestInterceptor(func(req *http.Request) error {
				calls++
				req.Header.Set("X-Attempt-Seen", "yes")
				return nil
			}),
		)

		env, err := executor.Do(context.Background(), Call{
			Service:     "convert",
			URL:         "http://example.com/api/convert",
			RetryConfig: RetryConfig{MaxTries: 2},
			Payload:     testPayload(),
		})
		require.NoError(t, err)
		defer env.Close()

		assert.Equal(t, 2, calls)
		for _, req := range mockTransport.Requests() {
			assert.Equal(t, "yes", req.Header.Get("X-Attempt-Seen"))
		}
	})

	t.Run("given failing interceptor, then fails without sending", func(t *testing.T) {
		errDenied := errors.New("denied")
		mockTransport := NewMockTransport().StubResponse(http.StatusOK, "")

		executor := New(
			WithMockTransport(mockTransport),
			WithRequestInterceptor(func(*http.Request) error { return errDenied }),
		)

		_, err := executor.Do(context.Background(), Call{
			URL:         "http://example.com/api/convert",
			RetryConfig: RetryConfig{MaxTries: 3},
			Payload:     testPayload(),
		})
		require.ErrorIs(t, err, errDenied)

		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 1, execErr.Tries)
		assert.Equal(t, 0, mockTransport.RequestCount())
	})
}
