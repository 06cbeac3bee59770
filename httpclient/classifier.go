package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Category classifies a connection-level failure.
type Category int

const (
	// CategoryIO is any I/O failure that is neither a connect nor a
	// protocol failure.
	CategoryIO Category = iota

	// CategoryConnect covers failures to reach the service: DNS resolution,
	// refused or unreachable connections, timeouts and TLS handshake errors.
	// Attempts rejected locally by the rate limiter or an open circuit
	// breaker are connect failures too.
	CategoryConnect

	// CategoryProtocol covers malformed HTTP exchanges.
	CategoryProtocol
)

// String returns the category name used in logs and metrics.
func (c Category) String() string {
	switch c {
	case CategoryConnect:
		return "connect"
	case CategoryProtocol:
		return "protocol"
	default:
		return "io"
	}
}

// Categorize returns the category of a transport error.
func Categorize(err error) Category {
	switch {
	case err == nil:
		return CategoryIO
	case isProtocolError(err):
		return CategoryProtocol
	case isTimeout(err), isUnknownHost(err), isConnectFailure(err), isTLSError(err),
		isLocalRejection(err):
		return CategoryConnect
	default:
		return CategoryIO
	}
}

// isLocalRejection reports whether the attempt never left the client because
// the rate limiter or the circuit breaker turned it down.
func isLocalRejection(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCircuitOpen)
}

// isTimeout reports whether err is a timeout of any kind.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ETIMEDOUT)
}

// isUnknownHost reports whether the host name could not be resolved.
func isUnknownHost(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return containsPattern(err, "no such host")
}

// isConnectFailure reports whether the TCP connection could not be set up.
func isConnectFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	return containsPattern(err,
		"connection refused",
		"network is unreachable",
		"no route to host",
	)
}

// isTLSError reports whether err came from the TLS handshake or
// certificate verification.
func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}

	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}

	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}

	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		return true
	}

	return containsPattern(err, "x509:", "tls:", "handshake")
}

// isNoResponse reports whether the server accepted the connection but closed
// it without sending a response.
func isNoResponse(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return containsPattern(err, "server closed idle connection")
}

// isProtocolError reports whether the HTTP exchange itself was malformed.
// An unparseable URL counts as one.
func isProtocolError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return true
	}

	return containsPattern(err,
		"malformed http",
		"unsupported protocol scheme",
		"protocol error",
		"invalid header",
		"bad status",
	)
}

// isCanceled reports whether the caller cancelled the call.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// containsPattern is a fallback for wrapped errors where type checks fail.
func containsPattern(err error, patterns ...string) bool {
	errStr := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
