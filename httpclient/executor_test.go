package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const testURL = "http://docmosis.test/api/convert"

func testCall(maxTries int) Call {
	return Call{
		Service:     "convert",
		URL:         testURL,
		RetryConfig: RetryConfig{MaxTries: maxTries, RetryDelay: time.Millisecond},
		Payload:     &Payload{Body: []byte("--b\r\npayload\r\n--b--\r\n"), ContentType: "multipart/form-data; boundary=b"},
	}
}

func TestExecutor_Do(t *testing.T) {
	type want struct {
		status       int
		tries        int
		shortMsg     string
		longMsg      string
		serverID     string
		body         string
		previousMsg  string
		requestCount int
	}

	tests := []struct {
		name     string
		maxTries int
		mockFn   func(*MockTransport)
		want     want
	}{
		{
			name:     "given 200, then succeeds on the first attempt",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.WithHeader(ServerIDHeader, "node-1").StubResponse(http.StatusOK, "%PDF-1.7")
			},
			want: want{status: http.StatusOK, tries: 1, serverID: "node-1", body: "%PDF-1.7", requestCount: 1},
		},
		{
			name:     "given always 503 and two tries, then exhausts with the not available message",
			maxTries: 2,
			mockFn: func(m *MockTransport) {
				m.WithHeader(ServerIDHeader, "node-1").
					StubResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy","longMsg":"queue full"}`)
			},
			want: want{
				status:       http.StatusServiceUnavailable,
				tries:        2,
				shortMsg:     "busy",
				longMsg:      "URL [" + testURL + "] is not available.",
				serverID:     "node-1",
				previousMsg:  "busy",
				requestCount: 2,
			},
		},
		{
			name:     "given 503 twice then 200, then succeeds on the third attempt with the last failure",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"first"}`).
					EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"second"}`).
					EnqueueResponse(http.StatusOK, "done")
			},
			want: want{status: http.StatusOK, tries: 3, body: "done", previousMsg: "second", requestCount: 3},
		},
		{
			name:     "given 404, then reports the not valid message without retrying",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubResponse(http.StatusNotFound, `{"shortMsg":"Not Found"}`)
			},
			want: want{
				status:       http.StatusNotFound,
				tries:        1,
				shortMsg:     "Not Found",
				longMsg:      "URL [" + testURL + "] is not valid.",
				previousMsg:  "Not Found",
				requestCount: 1,
			},
		},
		{
			name:     "given 500, then returns the engine messages without retrying",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubResponse(http.StatusInternalServerError, `{"shortMsg":"Template error","longMsg":"field [name] missing"}`)
			},
			want: want{
				status:       http.StatusInternalServerError,
				tries:        1,
				shortMsg:     "Template error",
				longMsg:      "field [name] missing",
				previousMsg:  "Template error",
				requestCount: 1,
			},
		},
		{
			name:     "given 400 with text body, then falls back to status text and dump",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubResponse(http.StatusBadRequest, "missing accessKey")
			},
			want: want{
				status:       http.StatusBadRequest,
				tries:        1,
				shortMsg:     "Bad Request",
				longMsg:      "HTTP/1.1 400 Bad Request: missing accessKey",
				requestCount: 1,
			},
		},
		{
			name:     "given 503 then 502 without body, then keeps the parseable snapshot",
			maxTries: 2,
			mockFn: func(m *MockTransport) {
				m.EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`).
					EnqueueResponse(http.StatusBadGateway, "")
			},
			want: want{
				status:       http.StatusBadGateway,
				tries:        2,
				shortMsg:     "Bad Gateway",
				longMsg:      "URL [" + testURL + "] is not available.",
				previousMsg:  "busy",
				requestCount: 2,
			},
		},
		{
			name:     "given EOF then 200, then retries the dropped connection",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.EnqueueError(io.EOF).EnqueueResponse(http.StatusOK, "ok")
			},
			want: want{status: http.StatusOK, tries: 2, body: "ok", requestCount: 2},
		},
		{
			name:     "given a single try and 503, then makes exactly one attempt",
			maxTries: 1,
			mockFn: func(m *MockTransport) {
				m.StubResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`)
			},
			want: want{
				status:       http.StatusServiceUnavailable,
				tries:        1,
				shortMsg:     "busy",
				longMsg:      "URL [" + testURL + "] is not available.",
				previousMsg:  "busy",
				requestCount: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTransport := NewMockTransport()
			tt.mockFn(mockTransport)

			executor := New(WithMockTransport(mockTransport))

			env, err := executor.Do(context.Background(), testCall(tt.maxTries))
			require.NoError(t, err)
			defer env.Close()

			assert.Equal(t, tt.want.status, env.Status)
			assert.Equal(t, tt.want.tries, env.Tries)
			assert.Equal(t, tt.want.shortMsg, env.ShortMsg)
			assert.Equal(t, tt.want.longMsg, env.LongMsg)
			assert.Equal(t, tt.want.serverID, env.ServerID)
			assert.Equal(t, tt.want.requestCount, mockTransport.RequestCount())

			if tt.want.previousMsg == "" {
				assert.Nil(t, env.PreviousFailure)
			} else {
				require.NotNil(t, env.PreviousFailure)
				assert.Equal(t, tt.want.previousMsg, env.PreviousFailure.ShortMsg)
			}

			if env.Succeeded() {
				require.NotNil(t, env.Body)
				body, err := io.ReadAll(env.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.want.body, string(body))
			} else {
				assert.Nil(t, env.Body)
			}
		})
	}
}

func TestExecutor_Do_ConnectionFailures(t *testing.T) {
	tests := []struct {
		name         string
		maxTries     int
		mockFn       func(*MockTransport)
		wantCategory Category
		wantTries    int
		wantIs       error
	}{
		{
			name:     "given a timeout, then fails with a connect error after one attempt",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubError(context.DeadlineExceeded)
			},
			wantCategory: CategoryConnect,
			wantTries:    1,
			wantIs:       context.DeadlineExceeded,
		},
		{
			name:     "given an unknown host, then fails without retrying",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubError(&net.DNSError{Err: "no such host", Name: "docmosis.test", IsNotFound: true})
			},
			wantCategory: CategoryConnect,
			wantTries:    1,
		},
		{
			name:     "given connection refused, then fails without retrying",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
			},
			wantCategory: CategoryConnect,
			wantTries:    1,
		},
		{
			name:     "given EOF on every attempt, then fails with an io error after max tries",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubError(io.EOF)
			},
			wantCategory: CategoryIO,
			wantTries:    3,
			wantIs:       io.EOF,
		},
		{
			name:     "given a malformed response, then fails with a protocol error",
			maxTries: 3,
			mockFn: func(m *MockTransport) {
				m.StubError(errors.New(`malformed HTTP response "garbage"`))
			},
			wantCategory: CategoryProtocol,
			wantTries:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTransport := NewMockTransport()
			tt.mockFn(mockTransport)

			executor := New(WithMockTransport(mockTransport))

			env, err := executor.Do(context.Background(), testCall(tt.maxTries))
			require.Error(t, err)
			assert.Nil(t, env)

			var execErr *ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.wantCategory, execErr.Category)
			assert.Equal(t, tt.wantTries, execErr.Tries)
			assert.Equal(t, testURL, execErr.URL)
			assert.Equal(t, tt.wantTries, mockTransport.RequestCount())
			assert.Contains(t, err.Error(), tt.wantCategory.String()+" error calling "+testURL)

			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestExecutor_Execute_Validation(t *testing.T) {
	executor := New(WithMockTransport(NewMockTransport()))

	_, err := executor.Execute(context.Background(), Call{Payload: testPayload()})
	require.ErrorIs(t, err, ErrNoURL)

	_, err = executor.Execute(context.Background(), Call{URL: testURL})
	require.ErrorIs(t, err, ErrNoPayload)
}

func TestExecutor_Execute_InvalidURL(t *testing.T) {
	mockTransport := NewMockTransport().StubResponse(http.StatusOK, "")
	executor := New(WithMockTransport(mockTransport))

	call := testCall(3)
	call.URL = "http://[::1"

	_, err := executor.Execute(context.Background(), call)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, CategoryProtocol, execErr.Category)
	assert.Equal(t, 0, mockTransport.RequestCount())
}

func TestExecutor_Execute_Outcome(t *testing.T) {
	mockTransport := NewMockTransport().
		EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"a"}`).
		EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"b"}`)

	executor := New(WithMockTransport(mockTransport))

	out, err := executor.Execute(context.Background(), testCall(2))
	require.NoError(t, err)
	defer out.Response.Body.Close()

	assert.True(t, out.Exhausted)
	assert.Equal(t, 2, out.Tries)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "b", out.Failure.ShortMsg)
	assert.Same(t, out.Failure, out.PreviousFailure)
	assert.NotEmpty(t, out.CallID)
	assert.Equal(t, outcomeExhausted, out.label())

	// The body of a failed response stays readable.
	body, err := io.ReadAll(out.Response.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"shortMsg":"b"}`, string(body))
}

func TestExecutor_AttemptLog(t *testing.T) {
	mockTransport := NewMockTransport().
		StubResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`)

	var buf bytes.Buffer
	executor := New(
		WithMockTransport(mockTransport),
		WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)),
	)

	out, err := executor.Execute(context.Background(), testCall(2))
	require.NoError(t, err)
	defer out.Response.Body.Close()

	var completed []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"message":"attempt completed"`) {
			completed = append(completed, line)
		}
	}

	require.Len(t, completed, 2)
	assert.Contains(t, completed[0], `"retry":true`)
	assert.Contains(t, completed[1], `"retry":false`, "the last attempt is never resent")
}

func TestExecutor_AttemptHeadersAndBody(t *testing.T) {
	var mu sync.Mutex
	var bodies []string

	mockTransport := NewMockTransport().
		EnqueueResponse(http.StatusServiceUnavailable, "").
		EnqueueResponse(http.StatusServiceUnavailable, "").
		EnqueueResponse(http.StatusOK, "").
		OnRequest(func(req *http.Request) {
			b, _ := io.ReadAll(req.Body)
			mu.Lock()
			bodies = append(bodies, string(b))
			mu.Unlock()
		})

	executor := New(WithMockTransport(mockTransport), WithUserAgent("renderer/1.0"))
	call := testCall(3)

	out, err := executor.Execute(context.Background(), call)
	require.NoError(t, err)
	defer out.Response.Body.Close()

	requests := mockTransport.Requests()
	require.Len(t, requests, 3)

	for _, req := range requests {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, call.Payload.ContentType, req.Header.Get("Content-Type"))
		assert.Equal(t, "renderer/1.0", req.Header.Get("User-Agent"))
		assert.Equal(t, out.CallID, req.Header.Get(RequestIDHeader))
	}

	for _, b := range bodies {
		assert.Equal(t, string(call.Payload.Body), b)
	}
}

func TestExecutor_RetryDelay(t *testing.T) {
	mockTransport := NewMockTransport().
		EnqueueResponse(http.StatusServiceUnavailable, "").
		EnqueueResponse(http.StatusServiceUnavailable, "").
		EnqueueResponse(http.StatusOK, "")

	executor := New(WithMockTransport(mockTransport))

	call := testCall(3)
	call.RetryDelay = 40 * time.Millisecond

	start := time.Now()
	env, err := executor.Do(context.Background(), call)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, 3, env.Tries)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestExecutor_ContextCanceledDuringWait(t *testing.T) {
	mockTransport := NewMockTransport().
		StubResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`)

	executor := New(WithMockTransport(mockTransport))

	call := testCall(3)
	call.RetryDelay = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := executor.Do(ctx, call)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Tries)
	require.NotNil(t, execErr.PreviousFailure)
	assert.Equal(t, "busy", execErr.PreviousFailure.ShortMsg)
	assert.Equal(t, 1, mockTransport.RequestCount())
}

func TestExecutor_ConcurrentCalls(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)

		mu.Lock()
		seen[id]++
		n := seen[id]
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"shortMsg":"warming up"}`))
			return
		}
		_, _ = w.Write([]byte(id))
	}))
	defer server.Close()

	executor := New()

	const calls = 10
	var wg sync.WaitGroup
	results := make([]*Envelope, calls)
	errs := make([]error, calls)

	for i := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call := testCall(3)
			call.URL = server.URL + "/api/convert"
			results[i], errs[i] = executor.Do(context.Background(), call)
		}()
	}
	wg.Wait()

	ids := make(map[string]struct{})
	for i := range calls {
		require.NoError(t, errs[i])
		env := results[i]

		assert.True(t, env.Succeeded())
		assert.Equal(t, 2, env.Tries)
		require.NotNil(t, env.PreviousFailure)
		assert.Equal(t, "warming up", env.PreviousFailure.ShortMsg)

		body, err := io.ReadAll(env.Body)
		require.NoError(t, err)
		env.Close()
		ids[string(body)] = struct{}{}
	}

	assert.Len(t, ids, calls)
	mu.Lock()
	defer mu.Unlock()
	for _, n := range seen {
		assert.Equal(t, 2, n)
	}
}

func TestExecutor_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/convert" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	executor := New()
	call := testCall(3)
	call.URL = server.URL + "/api/convert"

	env, err := executor.Do(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, env.Status)
	assert.Equal(t, 1, env.Tries)
	assert.Equal(t, "Found", env.ShortMsg)
}

func TestExecutor_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	mockTransport := NewMockTransport().
		WithHeader(ServerIDHeader, "node-3").
		EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`).
		EnqueueResponse(http.StatusOK, "ok")

	executor := New(
		WithMockTransport(mockTransport),
		WithTracerProvider(tp),
		WithServiceName("invoices"),
	)

	env, err := executor.Do(context.Background(), testCall(2))
	require.NoError(t, err)
	env.Close()

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	var parent tracetest.SpanStub
	var attempts []tracetest.SpanStub
	for _, s := range spans {
		if s.Name == "docmosis.convert" {
			parent = s
		} else {
			attempts = append(attempts, s)
		}
	}

	assert.Equal(t, trace.SpanKindInternal, parent.SpanKind)
	assert.Contains(t, parent.Attributes, attribute.String("docmosis.service", "convert"))
	assert.Contains(t, parent.Attributes, attribute.String("http.client.name", "invoices"))
	assert.Contains(t, parent.Attributes, attribute.Int("docmosis.tries", 2))
	require.Len(t, parent.Events, 1)
	assert.Equal(t, "docmosis.retry", parent.Events[0].Name)
	assert.Contains(t, parent.Events[0].Attributes, attribute.String("retry.reason", "service_unavailable"))

	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.Equal(t, "HTTP POST", a.Name)
		assert.Equal(t, trace.SpanKindClient, a.SpanKind)
		assert.Equal(t, parent.SpanContext.SpanID(), a.Parent.SpanID())
		assert.Contains(t, a.Attributes, attribute.String("docmosis.server_id", "node-3"))
	}

	// Spans are exported in end order, so the first attempt ends first.
	assert.Equal(t, codes.Error, attempts[0].Status.Code)
	assert.NotContains(t, attempts[0].Attributes, attribute.Int("http.request.resend_count", 0))
	assert.Contains(t, attempts[1].Attributes, attribute.Int("http.request.resend_count", 1))
}

func TestExecutor_TracingConnectionError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	executor := New(
		WithMockTransport(NewMockTransport().StubError(&net.DNSError{Err: "no such host", Name: "docmosis.test"})),
		WithTracerProvider(tp),
	)

	_, err := executor.Do(context.Background(), testCall(3))
	require.Error(t, err)

	var parent tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		if s.Name == "docmosis.convert" {
			parent = s
		}
	}
	assert.Equal(t, codes.Error, parent.Status.Code)
	assert.Contains(t, parent.Attributes, attribute.String("error.type", "connect"))
}

func TestAttemptFromContext(t *testing.T) {
	assert.Equal(t, 0, attemptFromContext(context.Background()))
	assert.Equal(t, 3, attemptFromContext(withAttempt(context.Background(), 3)))
}

func TestSpanName(t *testing.T) {
	assert.Equal(t, "docmosis.call", spanName(Call{}))
	assert.Equal(t, "docmosis.ping", spanName(Call{Service: "ping"}))
}
