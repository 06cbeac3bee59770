package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http/httptrace"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications for the error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeNoResponse        = "no_response"
	ErrorTypeProtocol          = "protocol_error"
	ErrorTypeBreakerOpen       = "circuit_open"
	ErrorTypeRateLimited       = "rate_limited"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace holds timing data collected from httptrace.ClientTrace.
type networkTrace struct {
	dnsStart time.Time
	dnsDone  time.Time

	connectStart time.Time
	connectDone  time.Time

	tlsStart time.Time
	tlsDone  time.Time

	gotConnTime       time.Time
	wroteRequestTime  time.Time
	firstResponseTime time.Time

	connReused bool
	connRemote string
	tlsVersion string
}

// createClientTrace creates an httptrace.ClientTrace that populates networkTrace.
func createClientTrace(nt *networkTrace) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			nt.gotConnTime = time.Now()
			nt.connReused = info.Reused
			if info.Conn != nil && info.Conn.RemoteAddr() != nil {
				nt.connRemote = info.Conn.RemoteAddr().String()
			}
		},
		DNSStart: func(_ httptrace.DNSStartInfo) {
			nt.dnsStart = time.Now()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			nt.dnsDone = time.Now()
		},
		ConnectStart: func(_, _ string) {
			nt.connectStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			nt.connectDone = time.Now()
		},
		TLSHandshakeStart: func() {
			nt.tlsStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.tlsDone = time.Now()
			nt.tlsVersion = tls.VersionName(state.Version)
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			nt.wroteRequestTime = time.Now()
		},
		GotFirstResponseByte: func() {
			nt.firstResponseTime = time.Now()
		},
	}
}

// addTraceEvents adds span events for network timing.
func (nt *networkTrace) addTraceEvents(span trace.Span) {
	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		span.AddEvent("dns.done", trace.WithTimestamp(nt.dnsDone),
			trace.WithAttributes(
				attribute.Int64("dns.duration_ms", nt.dnsDone.Sub(nt.dnsStart).Milliseconds()),
			))
	}

	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		span.AddEvent("connect.done", trace.WithTimestamp(nt.connectDone),
			trace.WithAttributes(
				attribute.Int64("connect.duration_ms", nt.connectDone.Sub(nt.connectStart).Milliseconds()),
			))
	}

	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		span.AddEvent("tls.done", trace.WithTimestamp(nt.tlsDone),
			trace.WithAttributes(
				attribute.Int64("tls.duration_ms", nt.tlsDone.Sub(nt.tlsStart).Milliseconds()),
				attribute.String("tls.protocol.version", nt.tlsVersion),
			))
	}

	if !nt.gotConnTime.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConnTime),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.connReused),
				attribute.String("network.peer.address", nt.connRemote),
			))
	}

	// Time to first byte covers the document engine's rendering time.
	if !nt.firstResponseTime.IsZero() && !nt.wroteRequestTime.IsZero() {
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstResponseTime),
			trace.WithAttributes(
				attribute.Int64("ttfb_ms", nt.firstResponseTime.Sub(nt.wroteRequestTime).Milliseconds()),
			))
	}
}

// recordTimingMetrics records network timing metrics.
func (nt *networkTrace) recordTimingMetrics(
	ctx context.Context,
	m *metrics,
	attrs []attribute.KeyValue,
) {
	if m == nil {
		return
	}

	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		m.recordDNSDuration(ctx, nt.dnsDone.Sub(nt.dnsStart), attrs)
	}

	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		m.recordConnectionDuration(ctx, nt.connectDone.Sub(nt.connectStart), attrs)
	}

	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		m.recordTLSDuration(ctx, nt.tlsDone.Sub(nt.tlsStart), attrs)
	}

	if !nt.wroteRequestTime.IsZero() && !nt.firstResponseTime.IsZero() {
		m.recordTTFB(ctx, nt.firstResponseTime.Sub(nt.wroteRequestTime), attrs)
	}
}

// classifyError returns an error.type value for a transport error.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case isCanceled(err):
		return ErrorTypeCancelled
	case errors.Is(err, ErrCircuitOpen):
		return ErrorTypeBreakerOpen
	case errors.Is(err, ErrRateLimited):
		return ErrorTypeRateLimited
	case isTimeout(err):
		return ErrorTypeTimeout
	case isUnknownHost(err):
		return ErrorTypeDNSError
	case isTLSError(err):
		return ErrorTypeTLSError
	case errors.Is(err, syscall.ECONNREFUSED), containsPattern(err, "connection refused"):
		return ErrorTypeConnectionRefused
	case isNoResponse(err):
		return ErrorTypeNoResponse
	case isProtocolError(err):
		return ErrorTypeProtocol
	default:
		return ErrorTypeUnknown
	}
}

// errorTypeFromStatusCode returns error.type for HTTP status codes.
// Per OTel semconv, the status code itself is used as the error type for 4xx/5xx.
func errorTypeFromStatusCode(statusCode int) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	return ""
}

// setSpanError records an error on the span with proper status and attributes.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
