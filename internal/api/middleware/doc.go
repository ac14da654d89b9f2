// Package middleware provides the HTTP middleware shared by the mock API and
// the gateway.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle cleanup
//   - GlobalRateLimit: One token bucket for all clients
//
// Both limiters skip the paths in RateLimitConfig.Exempt.
//   - RequestLogger: Structured request logging via zap
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig("http://localhost:5173")))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.Use(middleware.RequestLogger(logger))
package middleware
