// Package httpclient executes Docmosis service calls: multipart POSTs with a
// fixed-delay retry policy, structured failure extraction and a uniform
// response envelope.
//
// # Features
//
//   - Retries of 501 to 599 responses with a fixed delay, bounded by MaxTries
//   - Idempotency-aware retries of transport errors: a request the server may
//     have processed is never sent twice
//   - Failure snapshots parsed from the Docmosis JSON error body
//   - OpenTelemetry spans per call and per attempt, OTel and Prometheus metrics
//   - Optional circuit breaker (local or Redis backed), rate limiting and
//     chaos injection around each attempt
//
// # Quick Start
//
//	var params httpclient.Params
//	params.Set("outputName", httpclient.String("report.pdf"))
//	params.Set("file", httpclient.File{Path: "report.docx"})
//
//	payload, err := httpclient.BuildPayload(accessKey, &params)
//	if err != nil {
//	    return err
//	}
//
//	executor := httpclient.New(httpclient.WithServiceName("reports"))
//
//	env, err := executor.Do(ctx, httpclient.Call{
//	    Service:     "convert",
//	    URL:         baseURL + "convert",
//	    RetryConfig: httpclient.DefaultRetryConfig(),
//	    Payload:     payload,
//	})
//	if err != nil {
//	    var execErr *httpclient.ExecutionError
//	    if errors.As(err, &execErr) && execErr.Category == httpclient.CategoryConnect {
//	        // the service could not be reached
//	    }
//	    return err
//	}
//	defer env.Close()
//
// # Retry Semantics
//
// Each call gets its own retry state; an Executor can be shared freely.
//
//   - 200: success, the body is handed to the caller
//   - 501 to 599: retried after RetryDelay while attempts remain
//   - 500 and 4xx: returned at once as a failed envelope
//   - no response from the server: retried while attempts remain
//   - timeouts, DNS, refused connections, TLS errors: returned at once as
//     an *ExecutionError
//
// Envelope.Tries reports the attempts made and Envelope.PreviousFailure the
// last failure the service reported, also for calls that succeeded after a retry.
//
// # Observability
//
// Metrics:
//   - http.client.request.duration (histogram, per attempt)
//   - http.client.retry.attempts (counter)
//   - http.client.retry.exhausted (counter)
//   - docmosis.client.call.duration (histogram, per call)
//   - docmosis.client.call.tries (histogram)
//   - http.client.breaker.requests, http.client.breaker.state
//
// Traces:
//   - "docmosis.<service>" span per call with retry events
//   - "HTTP POST" client span per attempt
//
// # Logging
//
// Pass a zerolog logger with WithLogger, or WithDebug(true) for stdout output.
// Every record carries the call_id sent in the X-Request-Id header.
package httpclient
