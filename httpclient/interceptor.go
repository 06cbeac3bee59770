package httpclient

import (
	"net/http"
)

// RequestInterceptor modifies an attempt before it is sent.
// Interceptors run on every attempt, in the order they were added.
//
// Common use cases:
//   - Authenticating against a gateway in front of a private Docmosis server
//   - Propagating a correlation ID from the caller's context
//   - Adding routing headers for a load balancer
//
// An interceptor error ends the call without sending the attempt.
type RequestInterceptor func(req *http.Request) error

// InterceptorChain manages request interceptors.
type InterceptorChain struct {
	requestInterceptors []RequestInterceptor
}

// NewInterceptorChain creates an empty interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(i RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, i)
}

// ApplyRequestInterceptors runs all request interceptors in order.
// It stops at the first error.
func (c *InterceptorChain) ApplyRequestInterceptors(req *http.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(req); err != nil {
			return err
		}
	}
	return nil
}

// AuthBearerInterceptor creates an interceptor that adds a Bearer token.
func AuthBearerInterceptor(token string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// AuthBearerFuncInterceptor creates an interceptor that adds a Bearer token
// obtained from tokenFunc on every attempt, for tokens that expire.
func AuthBearerFuncInterceptor(tokenFunc func() (string, error)) RequestInterceptor {
	return func(req *http.Request) error {
		token, err := tokenFunc()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// HeaderInterceptor creates an interceptor that sets a fixed header.
func HeaderInterceptor(name, value string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(name, value)
		return nil
	}
}

// CorrelationIDInterceptor creates an interceptor that sets headerName to the
// value returned by idFunc for the attempt's context. Empty values are skipped.
func CorrelationIDInterceptor(headerName string, idFunc func(req *http.Request) string) RequestInterceptor {
	return func(req *http.Request) error {
		if id := idFunc(req); id != "" {
			req.Header.Set(headerName, id)
		}
		return nil
	}
}
