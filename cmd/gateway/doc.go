// Package main is the entry point for the resilience gateway.
//
// The gateway fronts the chaos mock API: product routes go through circuit
// breakers with fallbacks, and the dashboard combines a critical and an
// optional timeout-bounded query.
//
// Usage:
//
//	API_URL=http://localhost:3001 ./gateway -port 3000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
