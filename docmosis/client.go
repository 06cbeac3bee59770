package docmosis

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

// Client calls the Docmosis services of one Environment.
//
// A Client is safe for concurrent use. Every call gets its own retry state.
type Client struct {
	env      Environment
	executor *httpclient.Executor
}

// New validates env and creates a Client.
//
// opts configure the executor: logging, tracing, metrics, breaker and so on.
// They are applied after the settings derived from env, so an explicit
// httpclient.WithConfig replaces env's connect and read timeouts.
//
// Example:
//
//	client, err := docmosis.New(
//	    docmosis.CloudEnvironment(docmosis.RegionEU, accessKey),
//	    httpclient.WithLogger(logger),
//	    httpclient.WithServiceName("invoices"),
//	)
func New(env Environment, opts ...httpclient.Option) (*Client, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	all := append(env.httpOptions(), opts...)

	return &Client{
		env:      env,
		executor: httpclient.New(all...),
	}, nil
}

// Environment returns the environment the client was built with.
func (c *Client) Environment() Environment {
	return c.env
}

// Executor returns the underlying executor.
func (c *Client) Executor() *httpclient.Executor {
	return c.executor
}

// execute posts params to service and returns the envelope of the call.
//
// Failed calls that reached the service return an envelope without error.
func (c *Client) execute(
	ctx context.Context,
	service string,
	params *httpclient.Params,
) (*httpclient.Envelope, error) {
	payload, err := httpclient.BuildPayload(c.env.AccessKey, params)
	if err != nil {
		return nil, &Error{Op: service, Err: err}
	}

	call := httpclient.Call{
		Service:     service,
		URL:         c.env.ServiceURL(service),
		RetryConfig: c.env.RetryConfig(),
		Payload:     payload,
	}
	c.executor.LogCurl(call, params)

	env, err := c.executor.Do(ctx, call)
	if err != nil {
		return nil, &Error{Op: service, Err: err}
	}
	return env, nil
}

// decode reads a successful JSON body into v and closes it.
// Failed envelopes carry no body and are left untouched.
func decode(service string, env *httpclient.Envelope, v any) error {
	if !env.Succeeded() || env.Body == nil {
		return nil
	}
	defer env.Close()

	if err := json.NewDecoder(env.Body).Decode(v); err != nil {
		return &Error{Op: service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// discard closes the body of an envelope whose content is not used.
func discard(env *httpclient.Envelope) {
	env.Close()
}

// requireField returns an error when value is empty.
func requireField(service, name, value string) error {
	if value == "" {
		return &Error{Op: service, Err: fmt.Errorf("%w: %s", ErrMissingField, name)}
	}
	return nil
}

// fileValue checks that v carries file content.
func fileValue(service, name string, v httpclient.Value) (httpclient.Value, error) {
	switch v.(type) {
	case httpclient.File, httpclient.Stream, httpclient.Bytes:
		return v, nil
	case nil:
		return nil, &Error{Op: service, Err: fmt.Errorf("%w: %s", ErrMissingField, name)}
	default:
		return nil, &Error{Op: service, Err: fmt.Errorf("%w: %s", ErrInvalidFile, name)}
	}
}

// setBool stores a flag only when it is set.
func setBool(params *httpclient.Params, name string, value bool) {
	if value {
		params.Set(name, httpclient.Bool(true))
	}
}

// setList stores a repeated field only when it has elements.
func setList(params *httpclient.Params, name string, values []string) {
	if len(values) > 0 {
		params.Set(name, httpclient.StringList(values))
	}
}
