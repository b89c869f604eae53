// Package config defines service configuration and its defaults.
//
// Values are layered by Load: defaults from New, an optional YAML file,
// an optional .env file, then VV_ prefixed environment variables.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory render job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of render workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// JobTimeoutMS caps a single asynchronous render.
	JobTimeoutMS int `koanf:"job_timeout_ms" validate:"min=1"`

	// JobTTLSec is how long finished jobs stay retrievable.
	JobTTLSec int `koanf:"job_ttl_sec" validate:"min=1"`

	// DedupeSize bounds the idempotency key cache. Zero or less disables the bound.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxInputSize caps array lengths, node counts and sample counts of render parameters.
	MaxInputSize int `koanf:"max_input_size" validate:"min=2"`

	// MaxFrames caps the frames of a single sequence.
	MaxFrames int `koanf:"max_frames" validate:"min=1"`

	// StreamIntervalMS is the default delay between streamed frames.
	StreamIntervalMS int `koanf:"stream_interval_ms" validate:"min=10,max=5000"`

	// DefaultPageSize and MaxPageSize bound paginated content listings.
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1,gtefield=DefaultPageSize"`

	// Neo4j holds the content graph connection. Empty URI selects the in-memory store.
	Neo4jURI      string `koanf:"neo4j_uri" validate:"omitempty,uri"`
	Neo4jUser     string `koanf:"neo4j_user"`
	Neo4jPassword string `koanf:"neo4j_password"`
	Neo4jDatabase string `koanf:"neo4j_database"`

	// PostgresDSN selects the gorm admin store. Empty selects the in-memory store.
	PostgresDSN string `koanf:"postgres_dsn"`

	// JWTSecret signs admin session tokens.
	JWTSecret string `koanf:"jwt_secret" validate:"min=32"`

	// TokenTTLMin is the admin session lifetime in minutes.
	TokenTTLMin int `koanf:"token_ttl_min" validate:"min=1"`

	// MetricsPrefix is prepended to every metric name after the namespace.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsEnabled turns render accounting on; collectors stay registered either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets" validate:"omitempty,dive,gt=0"`

	// MetricsLabels are constant labels attached to every metric, e.g. env: prod.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// BootstrapAdminEmail and BootstrapAdminPassword create the first admin at startup when set.
	BootstrapAdminEmail    string `koanf:"bootstrap_admin_email" validate:"omitempty,email"`
	BootstrapAdminPassword string `koanf:"bootstrap_admin_password" validate:"required_with=BootstrapAdminEmail"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        1_024,
		WorkerCount:      runtime.NumCPU(),
		JobTimeoutMS:     10_000,
		JobTTLSec:        900,
		DedupeSize:       10_000,
		MaxInputSize:     512,
		MaxFrames:        20_000,
		StreamIntervalMS: 250,
		DefaultPageSize:  20,
		MaxPageSize:      100,
		Neo4jDatabase:    "neo4j",
		JWTSecret:        "change-me-change-me-change-me-change-me",
		TokenTTLMin:      60,
		MetricsEnabled:   true,
	}
}

// JobTimeout returns JobTimeoutMS as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMS) * time.Millisecond
}

// JobTTL returns JobTTLSec as a duration.
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.JobTTLSec) * time.Second
}

// StreamInterval returns StreamIntervalMS as a duration.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.StreamIntervalMS) * time.Millisecond
}

// TokenTTL returns TokenTTLMin as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}
