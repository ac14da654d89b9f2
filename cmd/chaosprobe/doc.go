// Package main is a command line probe for the chaos mock API.
//
// It fires a number of requests at one endpoint, optionally applying a
// chaos preset first and routing calls through a circuit breaker, then
// prints a YAML report of failures, timeouts, short circuits and latency.
//
// Usage:
//
//	./chaosprobe -endpoint products -n 200 -c 8
//	./chaosprobe -preset flaky -breaker -endpoint transactions
package main
