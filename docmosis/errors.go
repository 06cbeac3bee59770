package docmosis

import (
	"errors"
)

// Configuration errors, returned before any request is sent.
var (
	ErrMissingBaseURL    = errors.New("docmosis: base URL is required")
	ErrInvalidBaseURL    = errors.New("docmosis: base URL must be an absolute http or https URL")
	ErrMissingAccessKey  = errors.New("docmosis: access key is required for the cloud deployment")
	ErrInvalidMaxTries   = errors.New("docmosis: max tries must be at least 1")
	ErrInvalidRetryDelay = errors.New("docmosis: retry delay must not be negative")
	ErrInvalidTimeout    = errors.New("docmosis: timeouts must not be negative")
	ErrInvalidProxy      = errors.New("docmosis: proxy host is required")
)

// Request errors.
var (
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidFile is returned when file content is not a File, Stream or Bytes value.
	ErrInvalidFile = errors.New("file must be a File, Stream or Bytes value")

	// ErrNoContent is returned when reading the document of a failed call.
	ErrNoContent = errors.New("docmosis: response has no content")
)

// Error is returned when a service call cannot produce a response: the
// request is invalid, the service could not be reached, or a successful
// response could not be decoded.
//
// Use errors.As to reach the cause:
//
//	var execErr *httpclient.ExecutionError
//	if errors.As(err, &execErr) {
//	    log.Printf("%s failure after %d tries", execErr.Category, execErr.Tries)
//	}
type Error struct {
	// Op is the service path of the call, for example "convert".
	Op string

	// Err is the cause.
	Err error
}

func (e *Error) Error() string {
	return "docmosis: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
