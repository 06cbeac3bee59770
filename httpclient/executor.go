package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the call id. Every attempt of a call sends the same id.
const RequestIDHeader = "X-Request-Id"

var (
	// ErrNoURL is returned when a call has no target URL.
	ErrNoURL = errors.New("httpclient: call has no URL")

	// ErrNoPayload is returned when a call has no payload.
	ErrNoPayload = errors.New("httpclient: call has no payload")

	// errRetryableStatus signals the retry loop that a 501 to 599 response
	// should be sent again. It never reaches the caller.
	errRetryableStatus = errors.New("service unavailable")
)

// Call is a single logical request: one multipart POST, sent up to MaxTries times.
//
// A Call is built once and executed once.
type Call struct {
	// Service names the operation, for example "convert". It is used in
	// span names, log fields and metric labels.
	Service string

	// URL is the full service URL the payload is posted to.
	URL string

	// RetryConfig bounds the attempts of this call.
	RetryConfig

	// Payload is the encoded multipart body. It is replayed on every attempt.
	Payload *Payload
}

// Outcome is the terminal response of a call along with the retry state
// recorded while producing it.
type Outcome struct {
	// Response is the final response. Its body is unread for a 200 and
	// buffered in memory for any other status.
	Response *http.Response

	// Tries is the number of physical attempts made.
	Tries int

	// PreviousFailure is the last snapshot recorded across all attempts.
	PreviousFailure *PreviousFailure

	// Failure is the snapshot of the final response, nil when it succeeded
	// or its body was not a JSON error envelope.
	Failure *PreviousFailure

	// Exhausted is true when the final response was still retryable but no
	// attempts were left.
	Exhausted bool

	// CallID is the id sent in RequestIDHeader.
	CallID string
}

// ExecutionError is returned when a call ends without any HTTP response.
type ExecutionError struct {
	Category        Category
	URL             string
	Tries           int
	PreviousFailure *PreviousFailure
	Err             error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s error calling %s (tries=%d): %v", e.Category, e.URL, e.Tries, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// attemptState is the retry state of one call. It is created by Execute and
// never shared, so concurrent calls on one Executor do not interfere.
type attemptState struct {
	callID      string
	tries       int
	conn        ConnectionPolicy
	unavailable ServiceUnavailablePolicy
	previous    *PreviousFailure
	last        Verdict
}

func newAttemptState(rc RetryConfig) *attemptState {
	return &attemptState{
		callID:      uuid.NewString(),
		conn:        ConnectionPolicy{MaxTries: rc.MaxTries},
		unavailable: ServiceUnavailablePolicy{MaxTries: rc.MaxTries, Delay: rc.RetryDelay},
	}
}

// record keeps the verdict of the latest response. A response without a
// parseable error body does not replace an earlier snapshot.
func (s *attemptState) record(v Verdict) {
	s.last = v
	if v.Failure != nil {
		s.previous = v.Failure
	}
}

// Execute sends call and returns its terminal response.
//
// Responses with status 501 to 599 are retried after RetryDelay while
// attempts remain. Transport errors are retried only when the server closed
// the connection without answering. Every other status is terminal and
// returned in the Outcome without error, including 4xx and 500.
//
// A call that ends without a response returns an *ExecutionError.
//
// The caller owns Outcome.Response.Body. PopulateEnvelope takes care of it.
func (e *Executor) Execute(ctx context.Context, call Call) (*Outcome, error) {
	if call.URL == "" {
		return nil, ErrNoURL
	}
	if call.Payload == nil {
		return nil, ErrNoPayload
	}

	rc := call.RetryConfig.normalized()
	st := newAttemptState(rc)
	start := time.Now()
	attrs := e.callAttributes(call)

	ctx, span := e.config.Tracer.Start(ctx, spanName(call),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(attribute.String("docmosis.call_id", st.callID)),
	)
	defer span.End()

	logger := e.config.Logger.With().
		Str("call_id", st.callID).
		Str("service", call.Service).
		Str("url", call.URL).
		Logger()

	notify := func(err error, next time.Duration) {
		logger.Debug().
			Err(err).
			Int("attempt", st.tries).
			Dur("delay", next).
			Msg("retrying call")
		recordRetryEvent(span, st.tries, err, next)
		e.config.Metrics.recordRetryAttempt(ctx, attrs, st.tries)
	}

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		return e.attempt(ctx, call, st, logger)
	}, rc.retryOptions(notify)...)

	out := &Outcome{
		Tries:           st.tries,
		PreviousFailure: st.previous,
		CallID:          st.callID,
	}

	switch {
	case err == nil:
		out.Response = resp
		out.Failure = st.last.Failure
	case errors.Is(err, errRetryableStatus) && resp != nil:
		out.Response = resp
		out.Failure = st.last.Failure
		out.Exhausted = true
		logger.Warn().
			Int("status", resp.StatusCode).
			Int("tries", st.tries).
			Msg("retries exhausted")
		e.config.Metrics.recordRetryExhausted(ctx, attrs)
	default:
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		execErr := newExecutionError(call.URL, st, err)
		logger.Error().
			Err(execErr.Err).
			Str("category", execErr.Category.String()).
			Int("tries", st.tries).
			Msg("call failed")
		setSpanError(span, execErr.Err, execErr.Category.String())
		e.record(ctx, call, attrs, outcomeError, st.tries, time.Since(start))
		return nil, execErr
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", out.Response.StatusCode),
		attribute.Int("docmosis.tries", out.Tries),
	)
	if out.Response.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", out.Response.StatusCode))
	}

	e.record(ctx, call, attrs, out.label(), st.tries, time.Since(start))
	return out, nil
}

// Do executes call and translates its outcome into an Envelope.
//
// Example:
//
//	env, err := executor.Do(ctx, httpclient.Call{
//	    Service:     "ping",
//	    URL:         "https://eu1.dws4.docmosis.com/api/ping",
//	    RetryConfig: httpclient.DefaultRetryConfig(),
//	    Payload:     payload,
//	})
func (e *Executor) Do(ctx context.Context, call Call) (*Envelope, error) {
	out, err := e.Execute(ctx, call)
	if err != nil {
		return nil, err
	}

	env := &Envelope{}
	PopulateEnvelope(env, out, call.URL)
	return env, nil
}

// attempt sends one physical request and classifies its result for the retry loop.
func (e *Executor) attempt(
	ctx context.Context,
	call Call,
	st *attemptState,
	logger zerolog.Logger,
) (*http.Response, error) {
	st.tries++
	attempt := st.tries

	req, err := e.newRequest(withAttempt(ctx, attempt), call, st.callID)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		retry := st.conn.ShouldRetry(err, attempt, req)
		logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Bool("retry", retry).
			Msg("attempt failed")
		if retry {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	v := st.unavailable.Evaluate(resp, attempt)
	st.record(v)

	// The last attempt is never resent, whatever the verdict.
	logger.Debug().
		Int("attempt", attempt).
		Int("status", resp.StatusCode).
		Str("server", resp.Header.Get(ServerIDHeader)).
		Bool("retry", v.Retry && attempt < st.unavailable.MaxTries).
		Msg("attempt completed")

	if v.Retry {
		return resp, errRetryableStatus
	}
	return resp, nil
}

// newRequest builds the POST for one attempt with a fresh body reader.
func (e *Executor) newRequest(ctx context.Context, call Call, callID string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, call.Payload.Reader())
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", call.Payload.ContentType)
	req.Header.Set("User-Agent", e.config.UserAgent)
	req.Header.Set(RequestIDHeader, callID)

	if err := e.config.Interceptors.ApplyRequestInterceptors(req); err != nil {
		return nil, fmt.Errorf("request interceptor: %w", err)
	}
	return req, nil
}

// newExecutionError strips the retry loop's wrapping from err.
func newExecutionError(url string, st *attemptState, err error) *ExecutionError {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	return &ExecutionError{
		Category:        Categorize(err),
		URL:             url,
		Tries:           st.tries,
		PreviousFailure: st.previous,
		Err:             err,
	}
}

// Call outcome labels.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeExhausted = "exhausted"
	outcomeError     = "error"
)

func (o *Outcome) label() string {
	switch {
	case o.Response.StatusCode == http.StatusOK:
		return outcomeSuccess
	case o.Exhausted:
		return outcomeExhausted
	default:
		return outcomeFailure
	}
}

// record reports a finished call to the OpenTelemetry and Prometheus instruments.
func (e *Executor) record(
	ctx context.Context,
	call Call,
	attrs []attribute.KeyValue,
	outcome string,
	tries int,
	duration time.Duration,
) {
	e.config.Metrics.recordCall(ctx, attrs, outcome, tries, duration)
	e.config.Collector.observe(call.Service, outcome, tries, duration)
}

func (e *Executor) callAttributes(call Call) []attribute.KeyValue {
	attrs := e.config.baseAttributes()
	if call.Service != "" {
		attrs = append(attrs, attribute.String("docmosis.service", call.Service))
	}
	return attrs
}

func spanName(call Call) string {
	if call.Service == "" {
		return "docmosis.call"
	}
	return "docmosis." + call.Service
}

// recordRetryEvent adds a span event for a scheduled retry.
func recordRetryEvent(span trace.Span, attempt int, err error, next time.Duration) {
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.delay_ms", next.Milliseconds()),
	}

	reason := "service_unavailable"
	if !errors.Is(err, errRetryableStatus) {
		reason = "no_response"
	}
	attrs = append(attrs, attribute.String("retry.reason", reason))

	span.AddEvent("docmosis.retry", trace.WithAttributes(attrs...))
}

type attemptKey struct{}

// withAttempt stores the attempt number for the transport chain.
func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// attemptFromContext returns the attempt number, or 0 outside of a call.
func attemptFromContext(ctx context.Context) int {
	attempt, _ := ctx.Value(attemptKey{}).(int)
	return attempt
}
