package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// maxErrorBody caps how much of a failed response is buffered.
const maxErrorBody = 1 << 20

// ConnectionPolicy decides whether a transport error is retried.
//
// Rules, in order:
//   - never once attempt has reached MaxTries
//   - never on timeouts, unknown hosts, connect failures, TLS errors or cancellation
//   - always when the server closed the connection without responding
//   - otherwise only when the request has no body
//
// Multipart POSTs always carry a body, so apart from the no-response case
// they are not retried here. A request the server may already have processed
// must not be sent twice.
type ConnectionPolicy struct {
	MaxTries int
}

// ShouldRetry reports whether the attempt that failed with err should be
// sent again. attempt is 1 for the first attempt.
func (p ConnectionPolicy) ShouldRetry(err error, attempt int, req *http.Request) bool {
	if err == nil || attempt >= p.MaxTries {
		return false
	}

	if isCanceled(err) || isTimeout(err) || isUnknownHost(err) ||
		isConnectFailure(err) || isTLSError(err) {
		return false
	}

	if isNoResponse(err) {
		return true
	}

	return isIdempotent(req)
}

// isIdempotent reports whether req has no entity.
func isIdempotent(req *http.Request) bool {
	if req == nil {
		return false
	}
	return req.ContentLength == 0 && (req.Body == nil || req.Body == http.NoBody)
}

// Verdict is the outcome of evaluating one response.
type Verdict struct {
	// Tries is the attempt number the verdict was made for.
	Tries int

	// Retry is true when the request should be sent again.
	Retry bool

	// Failure is the snapshot of this response. It is nil for 200 responses
	// and for error bodies that are not a JSON error envelope.
	Failure *PreviousFailure
}

// ServiceUnavailablePolicy decides whether a response is retried.
//
// Only statuses 501 to 599 are retried: they come from the infrastructure in
// front of the document engine. A 500 comes from the engine itself and is
// returned to the caller as is.
type ServiceUnavailablePolicy struct {
	MaxTries int
	Delay    time.Duration
}

// Evaluate inspects resp, the response to attempt number attempt.
//
// For any status other than 200 the body is read and replaced by an
// in-memory copy, so it can be read again after Evaluate returns.
func (p ServiceUnavailablePolicy) Evaluate(resp *http.Response, attempt int) Verdict {
	v := Verdict{Tries: attempt}
	if resp == nil || resp.StatusCode == http.StatusOK {
		return v
	}

	body := bufferBody(resp)
	v.Failure = newFailure(resp, body)
	v.Retry = isUnavailableStatus(resp.StatusCode) && attempt <= p.MaxTries
	return v
}

// RetryInterval returns the fixed wait before the next attempt.
func (p ServiceUnavailablePolicy) RetryInterval() time.Duration {
	return p.Delay
}

// isUnavailableStatus reports whether status is in [501, 599].
func isUnavailableStatus(status int) bool {
	return status > http.StatusInternalServerError && status < 600
}

// bufferBody reads and closes resp.Body, replacing it with an in-memory copy.
// Read errors are swallowed: whatever was read is kept.
func bufferBody(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		resp.Body = http.NoBody
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// readBuffered returns the body of a response already passed through
// bufferBody, leaving it readable.
func readBuffered(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return body
}
