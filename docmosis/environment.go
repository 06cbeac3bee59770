package docmosis

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

// Deployment identifies the kind of Docmosis server an Environment targets.
type Deployment int

const (
	// DeploymentCloud is the hosted Docmosis service. It requires an access key.
	DeploymentCloud Deployment = iota

	// DeploymentPrivate is a self-hosted Docmosis server. The access key is
	// optional and depends on the server's configuration.
	DeploymentPrivate
)

func (d Deployment) String() string {
	if d == DeploymentPrivate {
		return "private"
	}
	return "cloud"
}

// Region is a Docmosis cloud processing region.
type Region string

// Docmosis cloud regions.
const (
	RegionUS Region = "us1"
	RegionEU Region = "eu1"
	RegionAU Region = "au1"
)

// BaseURL returns the API base URL of the region.
func (r Region) BaseURL() string {
	return "https://" + string(r) + ".dws4.docmosis.com/api/"
}

// Proxy describes an HTTP proxy to reach Docmosis through.
type Proxy struct {
	Host     string
	Port     int
	User     string
	Password string
}

// URL returns the proxy as an http URL, including credentials when set.
func (p Proxy) URL() *url.URL {
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}

	u := &url.URL{Scheme: "http", Host: host}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u
}

// Environment holds everything needed to reach a Docmosis deployment.
//
// Build one with NewEnvironment, CloudEnvironment or PrivateEnvironment.
// An Environment is a plain value; copies do not affect each other.
type Environment struct {
	// BaseURL is prepended to every service path, for example
	// "https://eu1.dws4.docmosis.com/api/". A missing trailing slash is added.
	BaseURL string

	// AccessKey is sent as the accessKey field of every call when non-empty.
	AccessKey string

	// MaxTries is the maximum number of attempts per call. Must be at least 1.
	MaxTries int

	// RetryDelay is the fixed wait between attempts. Must not be negative.
	RetryDelay time.Duration

	// ConnectTimeout bounds establishing a connection. Zero keeps the default.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for a response once the request is sent.
	// Zero keeps the default, which is no limit.
	ReadTimeout time.Duration

	// Proxy routes all calls through an HTTP proxy when set.
	Proxy *Proxy

	// Deployment selects cloud or private server rules.
	Deployment Deployment
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// NewEnvironment returns a cloud Environment with default retry settings,
// modified by opts.
//
// Example:
//
//	env := docmosis.NewEnvironment(
//	    docmosis.WithBaseURL(docmosis.RegionEU.BaseURL()),
//	    docmosis.WithAccessKey(os.Getenv("DOCMOSIS_ACCESS_KEY")),
//	    docmosis.WithMaxTries(5),
//	)
func NewEnvironment(opts ...EnvironmentOption) Environment {
	env := Environment{
		MaxTries:   httpclient.DefaultMaxTries,
		RetryDelay: httpclient.DefaultRetryDelay,
		Deployment: DeploymentCloud,
	}
	for _, opt := range opts {
		opt(&env)
	}
	return env
}

// CloudEnvironment returns an Environment for the Docmosis cloud in region.
func CloudEnvironment(region Region, accessKey string, opts ...EnvironmentOption) Environment {
	base := []EnvironmentOption{
		WithBaseURL(region.BaseURL()),
		WithAccessKey(accessKey),
		WithDeployment(DeploymentCloud),
	}
	return NewEnvironment(append(base, opts...)...)
}

// PrivateEnvironment returns an Environment for a self-hosted server.
func PrivateEnvironment(baseURL string, opts ...EnvironmentOption) Environment {
	base := []EnvironmentOption{
		WithBaseURL(baseURL),
		WithDeployment(DeploymentPrivate),
	}
	return NewEnvironment(append(base, opts...)...)
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) EnvironmentOption {
	return func(e *Environment) {
		e.BaseURL = baseURL
	}
}

// WithAccessKey sets the access key.
func WithAccessKey(key string) EnvironmentOption {
	return func(e *Environment) {
		e.AccessKey = key
	}
}

// WithMaxTries sets the maximum number of attempts per call.
func WithMaxTries(n int) EnvironmentOption {
	return func(e *Environment) {
		e.MaxTries = n
	}
}

// WithRetryDelay sets the fixed wait between attempts.
func WithRetryDelay(d time.Duration) EnvironmentOption {
	return func(e *Environment) {
		e.RetryDelay = d
	}
}

// WithConnectTimeout sets the connect timeout.
func WithConnectTimeout(d time.Duration) EnvironmentOption {
	return func(e *Environment) {
		e.ConnectTimeout = d
	}
}

// WithReadTimeout sets the read timeout.
func WithReadTimeout(d time.Duration) EnvironmentOption {
	return func(e *Environment) {
		e.ReadTimeout = d
	}
}

// WithProxy routes calls through p.
func WithProxy(p Proxy) EnvironmentOption {
	return func(e *Environment) {
		e.Proxy = &p
	}
}

// WithDeployment sets the deployment kind.
func WithDeployment(d Deployment) EnvironmentOption {
	return func(e *Environment) {
		e.Deployment = d
	}
}

// Validate reports the first configuration problem of e. It never touches
// the network.
func (e Environment) Validate() error {
	if strings.TrimSpace(e.BaseURL) == "" {
		return ErrMissingBaseURL
	}

	u, err := url.Parse(e.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, e.BaseURL)
	}

	if e.Deployment == DeploymentCloud && e.AccessKey == "" {
		return ErrMissingAccessKey
	}

	if e.MaxTries < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTries, e.MaxTries)
	}

	if e.RetryDelay < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRetryDelay, e.RetryDelay)
	}

	if e.ConnectTimeout < 0 || e.ReadTimeout < 0 {
		return ErrInvalidTimeout
	}

	if e.Proxy != nil && e.Proxy.Host == "" {
		return ErrInvalidProxy
	}

	return nil
}

// ServiceURL returns the full URL of the service at path.
func (e Environment) ServiceURL(path string) string {
	base := e.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(path, "/")
}

// RetryConfig returns the per-call retry settings.
func (e Environment) RetryConfig() httpclient.RetryConfig {
	return httpclient.RetryConfig{
		MaxTries:   e.MaxTries,
		RetryDelay: e.RetryDelay,
	}
}

// httpOptions translates the transport settings into executor options.
func (e Environment) httpOptions() []httpclient.Option {
	cfg := httpclient.DefaultConfig()
	if e.ConnectTimeout > 0 {
		cfg.DialTimeout = e.ConnectTimeout
	}
	if e.ReadTimeout > 0 {
		cfg.ResponseHeaderTimeout = e.ReadTimeout
	}

	opts := []httpclient.Option{httpclient.WithConfig(cfg)}
	if e.Proxy != nil {
		opts = append(opts, httpclient.WithProxyURL(e.Proxy.URL()))
	}
	return opts
}
