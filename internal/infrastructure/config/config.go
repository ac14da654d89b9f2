package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Chaos       ChaosConfig
	Gateway     GatewayConfig
	Breaker     BreakerConfig
	Client      ClientConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Compression CompressionConfig
}

// ServerConfig holds the chaos mock server listener.
type ServerConfig struct {
	Port string `envconfig:"MOCK_API_PORT" default:"3001"`
	Host string `envconfig:"MOCK_API_HOST" default:"0.0.0.0"`
}

// ChaosConfig holds the initial chaos settings applied at startup.
type ChaosConfig struct {
	FailureRate   float64 `envconfig:"MOCK_API_FAILURE_RATE" default:"0.2"`
	LatencyMinMS  int     `envconfig:"MOCK_API_LATENCY_MIN" default:"100"`
	LatencyMaxMS  int     `envconfig:"MOCK_API_LATENCY_MAX" default:"800"`
	Timeout       bool    `envconfig:"MOCK_API_TIMEOUT" default:"false"`
	MalformedData bool    `envconfig:"MOCK_API_MALFORMED" default:"false"`
	PresetsFile   string  `envconfig:"MOCK_API_PRESETS"`
	Seed          int64   `envconfig:"MOCK_API_SEED" default:"0"`
}

// GatewayConfig holds the consumer-facing gateway settings.
type GatewayConfig struct {
	Port            string        `envconfig:"GATEWAY_PORT" default:"3000"`
	Host            string        `envconfig:"GATEWAY_HOST" default:"0.0.0.0"`
	APIURL          string        `envconfig:"API_URL" default:"http://localhost:3001"`
	PrefetchTimeout time.Duration `envconfig:"PREFETCH_TIMEOUT" default:"5s"`
	QueryCacheSize  int           `envconfig:"QUERY_CACHE_SIZE" default:"1000"`
	QueryGCTime     time.Duration `envconfig:"QUERY_GC_TIME" default:"5m"`
}

// BreakerConfig holds the default circuit breaker policy.
type BreakerConfig struct {
	CallTimeout     time.Duration `envconfig:"BREAKER_CALL_TIMEOUT" default:"3s"`
	ErrorThreshold  float64       `envconfig:"BREAKER_ERROR_THRESHOLD" default:"50"`
	ResetTimeout    time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"10s"`
	RollingWindow   time.Duration `envconfig:"BREAKER_ROLLING_WINDOW" default:"30s"`
	RollingBuckets  int           `envconfig:"BREAKER_ROLLING_BUCKETS" default:"10"`
	VolumeThreshold int           `envconfig:"BREAKER_VOLUME_THRESHOLD" default:"0"`
}

// ClientConfig holds outbound HTTP client configuration.
type ClientConfig struct {
	Timeout   time.Duration `envconfig:"CLIENT_TIMEOUT" default:"30s"`
	Retries   int           `envconfig:"CLIENT_RETRIES" default:"0"`
	RateLimit float64       `envconfig:"CLIENT_RATE_LIMIT" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	// Global shares one bucket between all clients instead of one per IP.
	Global bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"`
}

// CORSConfig lists the browser origins allowed to call the servers.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// CompressionConfig toggles gzip response compression.
type CompressionConfig struct {
	Enabled bool `envconfig:"COMPRESSION_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3001",
			Host: "0.0.0.0",
		},
		Chaos: ChaosConfig{
			FailureRate:  0.2,
			LatencyMinMS: 100,
			LatencyMaxMS: 800,
		},
		Gateway: GatewayConfig{
			Port:            "3000",
			Host:            "0.0.0.0",
			APIURL:          "http://localhost:3001",
			PrefetchTimeout: 5 * time.Second,
			QueryCacheSize:  1000,
			QueryGCTime:     5 * time.Minute,
		},
		Breaker: BreakerConfig{
			CallTimeout:    3 * time.Second,
			ErrorThreshold: 50,
			ResetTimeout:   10 * time.Second,
			RollingWindow:  30 * time.Second,
			RollingBuckets: 10,
		},
		Client: ClientConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
		Compression: CompressionConfig{
			Enabled: true,
		},
	}
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Chaos.FailureRate < 0 || c.Chaos.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("MOCK_API_FAILURE_RATE must be within [0,1], got %v", c.Chaos.FailureRate))
	}
	if c.Chaos.LatencyMinMS < 0 || c.Chaos.LatencyMaxMS < c.Chaos.LatencyMinMS {
		errs = append(errs, fmt.Errorf("latency range %d..%d ms is invalid", c.Chaos.LatencyMinMS, c.Chaos.LatencyMaxMS))
	}
	if c.Breaker.RollingBuckets <= 0 {
		errs = append(errs, errors.New("BREAKER_ROLLING_BUCKETS must be positive"))
	} else if c.Breaker.RollingWindow <= 0 || c.Breaker.RollingWindow%time.Duration(c.Breaker.RollingBuckets) != 0 {
		errs = append(errs, fmt.Errorf("BREAKER_ROLLING_WINDOW %s must divide evenly into %d buckets",
			c.Breaker.RollingWindow, c.Breaker.RollingBuckets))
	}
	if c.Breaker.ErrorThreshold < 0 || c.Breaker.ErrorThreshold > 100 {
		errs = append(errs, fmt.Errorf("BREAKER_ERROR_THRESHOLD must be within [0,100], got %v", c.Breaker.ErrorThreshold))
	}
	if c.Gateway.PrefetchTimeout <= 0 {
		errs = append(errs, errors.New("PREFETCH_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// ChaosLatency returns the configured latency bounds as durations.
func (c ChaosConfig) ChaosLatency() (time.Duration, time.Duration) {
	return time.Duration(c.LatencyMinMS) * time.Millisecond, time.Duration(c.LatencyMaxMS) * time.Millisecond
}
