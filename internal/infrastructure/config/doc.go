// Package config provides 12-factor configuration management for the
// resilience lab binaries.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: chaos mock server listener (port, host)
//   - Chaos: initial chaos settings (failure rate, latency, toggles, presets)
//   - Gateway: consumer gateway listener, upstream URL and prefetch timeout
//   - Breaker: default circuit breaker policy
//   - Client: outbound HTTP client timeout, retries and rate limit
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Compression: gzip response compression
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Mock API running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - MOCK_API_PORT, MOCK_API_HOST, MOCK_API_FAILURE_RATE, MOCK_API_SEED
//   - MOCK_API_LATENCY_MIN, MOCK_API_LATENCY_MAX, MOCK_API_TIMEOUT, MOCK_API_MALFORMED
//   - MOCK_API_PRESETS
//   - GATEWAY_PORT, API_URL, PREFETCH_TIMEOUT, QUERY_CACHE_SIZE, QUERY_GC_TIME
//   - BREAKER_CALL_TIMEOUT, BREAKER_ERROR_THRESHOLD, BREAKER_RESET_TIMEOUT
//   - BREAKER_ROLLING_WINDOW, BREAKER_ROLLING_BUCKETS, BREAKER_VOLUME_THRESHOLD
//   - CLIENT_TIMEOUT, CLIENT_RETRIES, CLIENT_RATE_LIMIT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - COMPRESSION_ENABLED
package config
