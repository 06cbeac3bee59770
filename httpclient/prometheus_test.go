package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()

	c.observe("convert", outcomeSuccess, 1, 200*time.Millisecond)
	c.observe("convert", outcomeSuccess, 2, time.Second)
	c.observe("", outcomeError, 1, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.calls.WithLabelValues("convert", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("unknown", outcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(c.calls))
	assert.Equal(t, 2, testutil.CollectAndCount(c.tries))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestCollector_NilSafety(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.observe("convert", outcomeSuccess, 1, time.Second)
	})
}

func TestCollector_Registry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector()))

	// Vectors without observations expose nothing.
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestExecutor_PrometheusOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		enqueue     func(*MockTransport)
		wantOutcome string
		wantTries   int
	}{
		{
			name: "given a retried success, then counts one success",
			enqueue: func(m *MockTransport) {
				m.EnqueueResponse(http.StatusServiceUnavailable, "").
					EnqueueResponse(http.StatusOK, "%PDF")
			},
			wantOutcome: outcomeSuccess,
			wantTries:   2,
		},
		{
			name: "given only unavailable answers, then counts one exhausted call",
			enqueue: func(m *MockTransport) {
				m.EnqueueResponse(http.StatusServiceUnavailable, "").
					EnqueueResponse(http.StatusServiceUnavailable, "")
			},
			wantOutcome: outcomeExhausted,
			wantTries:   2,
		},
		{
			name: "given a bad request, then counts one failure",
			enqueue: func(m *MockTransport) {
				m.EnqueueResponse(http.StatusBadRequest, `{"shortMsg":"bad"}`)
			},
			wantOutcome: outcomeFailure,
			wantTries:   1,
		},
		{
			name: "given connection failures, then counts one error",
			enqueue: func(m *MockTransport) {
				m.EnqueueError(io.ErrUnexpectedEOF).EnqueueError(io.ErrUnexpectedEOF)
			},
			wantOutcome: outcomeError,
			wantTries:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			mock := NewMockTransport()
			tt.enqueue(mock)

			executor := New(WithMockTransport(mock), WithPrometheusRegisterer(reg))
			require.NotNil(t, executor.config.Collector)

			env, _ := executor.Do(context.Background(), testCall(2))
			if env != nil {
				env.Close()
			}

			c := executor.config.Collector
			assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("convert", tt.wantOutcome)))

			expected := `
# HELP docmosis_calls_total Docmosis calls by service and outcome.
# TYPE docmosis_calls_total counter
docmosis_calls_total{outcome="` + tt.wantOutcome + `",service="convert"} 1
`
			require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "docmosis_calls_total"))

			count, err := testutil.GatherAndCount(reg, "docmosis_call_tries")
			require.NoError(t, err)
			assert.Equal(t, 1, count)
			assert.Equal(t, tt.wantTries, mock.RequestCount())
		})
	}
}
