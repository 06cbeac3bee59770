package config

import "time"

const (
	// Docmosis configuration
	AccessKeyEnv  = "DOCMOSIS_ACCESS_KEY"
	RegionEnv     = "DOCMOSIS_REGION"
	DefaultRegion = "us1"
	MaxTries      = 5
	RetryDelay    = 2 * time.Second
	ReadTimeout   = 2 * time.Minute
	OutputFormat  = "pdf"

	// Server configuration
	MetricsPort = ":2112"

	// OpenTelemetry configuration
	OTLPEndpoint   = "localhost:4317"
	ServiceName    = "docmosis-convert-example"
	ServiceVersion = "0.1.0"

	// Ping interval in seconds
	PingInterval = 15
)
