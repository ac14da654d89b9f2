// Package main is the entry point for the chaos mock API.
//
// The server answers the workshop's product, order, transaction and
// analytics endpoints through a chaos engine that injects failures,
// latency, hangs and malformed payloads according to live settings.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./mockapi -port 3001 -failure-rate 0.2
//
//	# Development mode (colored logs, debug level)
//	./mockapi -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
