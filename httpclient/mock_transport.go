package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport provides a scriptable http.RoundTripper for testing code
// built on the Executor without a Docmosis server.
//
// Responses are served in this order:
//  1. queued replies added with Enqueue*, one per attempt
//  2. the first stub whose service path matches
//  3. the default reply set with StubResponse or StubError
//
// Example:
//
//	mock := httpclient.NewMockTransport().
//	    EnqueueResponse(http.StatusServiceUnavailable, `{"shortMsg":"busy"}`).
//	    EnqueueResponse(http.StatusOK, "%PDF-1.7")
//
//	executor := httpclient.New(httpclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.Mutex
	queue       []reply
	stubs       []stub
	fallback    *reply
	headers     http.Header
	requests    []*http.Request
	requestHook func(*http.Request)
}

type reply struct {
	statusCode int
	body       string
	err        error
}

type stub struct {
	matcher func(*http.Request) bool
	reply   reply
}

// NewMockTransport creates a new MockTransport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{headers: make(http.Header)}
}

// WithHeader adds a header to every response, for example ServerIDHeader.
func (m *MockTransport) WithHeader(key, value string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers.Set(key, value)
	return m
}

// EnqueueResponse queues a response for the next unanswered attempt.
func (m *MockTransport) EnqueueResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, reply{statusCode: statusCode, body: body})
	return m
}

// EnqueueError queues a transport error for the next unanswered attempt.
func (m *MockTransport) EnqueueError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, reply{err: err})
	return m
}

// StubResponse answers all otherwise unanswered attempts with the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &reply{statusCode: statusCode, body: body}
	return m
}

// StubError answers all otherwise unanswered attempts with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &reply{err: err}
	return m
}

// StubService answers attempts whose URL path ends in "/"+service.
func (m *MockTransport) StubService(service string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return strings.HasSuffix(req.URL.Path, "/"+service)
	}, statusCode, body)
}

// StubFunc answers attempts matching the predicate with the given response.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{
		matcher: matcher,
		reply:   reply{statusCode: statusCode, body: body},
	})
	return m
}

// StubFuncError answers attempts matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, reply: reply{err: err}})
	return m
}

// OnRequest sets a hook that is called for each attempt.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	hook := m.requestHook
	r, ok := m.next(req)
	headers := m.headers.Clone()
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if req.Body != nil {
		req.Body.Close()
	}

	if !ok {
		return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.response(req, headers), nil
}

// next picks the reply for req. m.mu must be held.
func (m *MockTransport) next(req *http.Request) (reply, bool) {
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r, true
	}
	for _, s := range m.stubs {
		if s.matcher(req) {
			return s.reply, true
		}
	}
	if m.fallback != nil {
		return *m.fallback, true
	}
	return reply{}, false
}

func (r reply) response(req *http.Request, headers http.Header) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.statusCode, http.StatusText(r.statusCode)),
		StatusCode:    r.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewBufferString(r.body)),
		ContentLength: int64(len(r.body)),
		Request:       req,
	}
}

// Requests returns all attempts made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestCount returns the number of attempts made.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent attempt, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears all recorded attempts, queued replies and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.stubs = nil
	m.fallback = nil
	m.headers = make(http.Header)
	m.requests = nil
	m.requestHook = nil
}

// WithMockTransport replaces the base transport with mock.
// The rest of the transport chain still applies.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}
