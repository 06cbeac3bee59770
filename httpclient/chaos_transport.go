package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// ErrChaosInjected is returned when chaos injection simulates a network error.
var ErrChaosInjected = errors.New("chaos: simulated network error")

// chaosUnavailableBody mimics the error body of an unavailable Docmosis node.
const chaosUnavailableBody = `{"shortMsg":"Service Unavailable","longMsg":"chaos: simulated unavailable response"}`

// chaosServerID is sent as the server id of injected responses.
const chaosServerID = "chaos"

// chaosTransport wraps an http.RoundTripper to inject chaos for testing.
type chaosTransport struct {
	next   http.RoundTripper
	config ChaosConfig
}

// newChaosTransport creates a new chaos transport wrapper.
func newChaosTransport(next http.RoundTripper, cfg ChaosConfig) http.RoundTripper {
	return &chaosTransport{
		next:   next,
		config: cfg,
	}
}

// Unwrap returns the wrapped transport.
func (t *chaosTransport) Unwrap() http.RoundTripper {
	return t.next
}

// RoundTrip implements http.RoundTripper with chaos injection.
func (t *chaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.config.ShouldInjectTimeout() {
		if _, ok := ctx.Deadline(); !ok {
			return nil, &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if t.config.ShouldInjectError() {
		return nil, &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: ErrChaosInjected,
		}
	}

	if delay := t.config.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if t.config.ShouldInjectUnavailable() {
		if req.Body != nil {
			req.Body.Close()
		}
		return unavailableResponse(req), nil
	}

	return t.next.RoundTrip(req)
}

func unavailableResponse(req *http.Request) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set(ServerIDHeader, chaosServerID)

	return &http.Response{
		Status:        "503 Service Unavailable",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(chaosUnavailableBody)),
		ContentLength: int64(len(chaosUnavailableBody)),
		Request:       req,
	}
}
