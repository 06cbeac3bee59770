package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// Envelope is the uniform result of a call.
//
// Every HTTP-level outcome, including 4xx and 5xx statuses, is reported
// through an Envelope. Check Succeeded before using Body.
//
// Example:
//
//	env, err := executor.Do(ctx, call)
//	if err != nil {
//	    return err // the service could not be reached
//	}
//	if !env.Succeeded() {
//	    return fmt.Errorf("convert failed: %s (%s)", env.ShortMsg, env.LongMsg)
//	}
//	defer env.Body.Close()
type Envelope struct {
	// Status is the HTTP status code of the final attempt.
	Status int

	// ShortMsg is the short error message of a failed call.
	ShortMsg string

	// LongMsg is the detailed error message of a failed call.
	LongMsg string

	// ServerID is the X-Docmosis-Server header of the final response.
	ServerID string

	// Tries is the number of physical attempts made, including the first.
	// A successful call with Tries > 1 succeeded after retrying.
	Tries int

	// PreviousFailure is the most recent failed attempt of the call, or nil
	// when no attempt returned a parseable error body.
	PreviousFailure *PreviousFailure

	// Body is the payload of a successful call. The caller must drain and
	// close it. It is nil for failed calls.
	Body io.ReadCloser
}

// Succeeded returns true if the final attempt returned 200.
func (e *Envelope) Succeeded() bool {
	return e.Status == http.StatusOK
}

// Close closes the payload, if any. It is safe to call more than once.
func (e *Envelope) Close() error {
	if e.Body == nil {
		return nil
	}
	err := e.Body.Close()
	e.Body = nil
	return err
}

// String returns a short description of the envelope for logs.
func (e *Envelope) String() string {
	if e.Succeeded() {
		return fmt.Sprintf("status=%d tries=%d server=%s", e.Status, e.Tries, e.ServerID)
	}
	return fmt.Sprintf("status=%d tries=%d shortMsg=%q longMsg=%q server=%s",
		e.Status, e.Tries, e.ShortMsg, e.LongMsg, e.ServerID)
}

// PopulateEnvelope fills env from the outcome of a call to url.
//
// This is the one routine every service uses to turn an Outcome into an
// Envelope. On success the response body is handed to env.Body. On failure
// the body is consumed and closed, and the messages are taken from, in order:
//
//  1. the snapshot the retry policy built for the final response
//  2. the JSON error envelope in the response body
//  3. the status text and a dump of the response
//
// A 404 always reports "URL [<url>] is not valid." and a 501 to 599 status
// always reports "URL [<url>] is not available." as the long message.
func PopulateEnvelope(env *Envelope, out *Outcome, url string) {
	resp := out.Response

	env.Status = resp.StatusCode
	env.Tries = out.Tries
	env.PreviousFailure = out.PreviousFailure
	if serverID := resp.Header.Get(ServerIDHeader); serverID != "" {
		env.ServerID = serverID
	}

	if resp.StatusCode == http.StatusOK {
		env.Body = resp.Body
		return
	}

	var body []byte
	if out.Failure == nil {
		body = readBuffered(resp)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}

	env.ShortMsg, env.LongMsg = failureMessages(resp, out.Failure, body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		env.LongMsg = fmt.Sprintf("URL [%s] is not valid.", url)
	case isUnavailableStatus(resp.StatusCode):
		env.LongMsg = fmt.Sprintf("URL [%s] is not available.", url)
	}
}

// failureMessages picks the short and long messages for a failed response.
func failureMessages(resp *http.Response, snapshot *PreviousFailure, body []byte) (string, string) {
	if snapshot != nil {
		return snapshot.ShortMsg, snapshot.LongMsg
	}

	shortMsg := statusText(resp)
	longMsg := responseDump(resp, body)

	if msgs, ok := parseErrorBody(body); ok {
		if msgs.shortMsg != "" {
			shortMsg = msgs.shortMsg
		}
		if msgs.longMsg != "" {
			longMsg = msgs.longMsg
		}
	}

	return shortMsg, longMsg
}
