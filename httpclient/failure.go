package httpclient

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ServerIDHeader identifies the Docmosis server that handled a request.
const ServerIDHeader = "X-Docmosis-Server"

// maxDumpBody caps how much of a non-JSON body is copied into a message.
const maxDumpBody = 512

// PreviousFailure is a snapshot of a failed attempt.
//
// It is a value type: once built it is never modified. A later failed attempt
// replaces the snapshot held by the call, it does not merge into it.
type PreviousFailure struct {
	// Status is the HTTP status code of the failed attempt.
	Status int

	// ShortMsg is the server's short error message.
	ShortMsg string

	// LongMsg is the server's detailed error message.
	LongMsg string

	// ServerID is the X-Docmosis-Server header of the failed attempt, if any.
	ServerID string
}

// String returns a single line description of the failure.
func (f *PreviousFailure) String() string {
	if f == nil {
		return "<none>"
	}
	s := fmt.Sprintf("status=%d shortMsg=%q longMsg=%q", f.Status, f.ShortMsg, f.LongMsg)
	if f.ServerID != "" {
		s += " server=" + f.ServerID
	}
	return s
}

// errorBody is the error envelope returned by the service.
// Both fields are optional.
type errorBody struct {
	ShortMsg json.RawMessage `json:"shortMsg"`
	LongMsg  json.RawMessage `json:"longMsg"`
}

// errorMessages holds the messages extracted from an error body.
// An empty string means the field was absent.
type errorMessages struct {
	shortMsg string
	longMsg  string
}

// parseErrorBody decodes an error envelope. ok is false when the body is not
// a JSON object.
func parseErrorBody(body []byte) (errorMessages, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errorMessages{}, false
	}

	var eb errorBody
	if err := json.Unmarshal(trimmed, &eb); err != nil {
		return errorMessages{}, false
	}

	return errorMessages{
		shortMsg: rawText(eb.ShortMsg),
		longMsg:  rawText(eb.LongMsg),
	}, true
}

// rawText returns the value of a JSON string, or the raw JSON text of any
// other value. null and absent fields produce "".
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// newFailure builds a snapshot for a non-200 response whose body has already
// been read. It returns nil when the body is not a JSON error envelope.
func newFailure(resp *http.Response, body []byte) *PreviousFailure {
	msgs, ok := parseErrorBody(body)
	if !ok {
		return nil
	}

	f := &PreviousFailure{
		Status:   resp.StatusCode,
		ShortMsg: msgs.shortMsg,
		LongMsg:  msgs.longMsg,
		ServerID: resp.Header.Get(ServerIDHeader),
	}
	if f.ShortMsg == "" {
		f.ShortMsg = statusText(resp)
	}
	if f.LongMsg == "" {
		f.LongMsg = responseDump(resp, body)
	}
	return f
}

// statusText returns the reason phrase of the response.
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// responseDump renders a response as text for use as a fallback message:
// the status line followed by the body when it is not JSON.
func responseDump(resp *http.Response, body []byte) string {
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := resp.Status
	if status == "" {
		status = strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
	}
	line := strings.TrimSpace(proto + " " + status)

	text := bytes.TrimSpace(body)
	if len(text) == 0 || text[0] == '{' {
		return line
	}
	if len(text) > maxDumpBody {
		return line + ": " + string(text[:maxDumpBody]) + "..."
	}
	return line + ": " + string(text)
}
