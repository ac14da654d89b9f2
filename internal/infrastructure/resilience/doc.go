/*
Package resilience provides the circuit breaker used to guard calls to the
upstream API.

# Overview

A Breaker watches the outcomes of the calls it wraps over a rolling,
time-bucketed window. When the failure percentage in the window rises above
a threshold it opens and short-circuits further calls for a cooldown, then
lets a single trial call through to decide whether to close again.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Percentage threshold over a rolling window with a minimum volume
- Per-call timeout counted as a failure
- Fallback invoked on rejection, failure, or timeout
- Event listener for transitions and call outcomes
- Registry keyed by name so state outlives a single request

# Usage

	registry := resilience.NewRegistry(resilience.DefaultSettings(),
		resilience.WithListener(resilience.LogEvents(logger)))

	breaker := registry.Get(resilience.Key("product-details", id))
	product, err := resilience.CallWithFallback(ctx, breaker,
		func(ctx context.Context) (Product, error) { return client.Product(ctx, id) },
		func(ctx context.Context, err error) (Product, error) { return Product{}, errUnavailable },
	)

# States

- Closed: Normal operation, outcomes are recorded in the window
- Open: Calls are rejected with ErrCircuitOpen until ResetTimeout elapses
- Half-Open: One trial call is admitted; others get ErrTooManyRequests

# Pattern

	Closed --[failure% > threshold]-> Open --[reset timeout]-> Half-Open --[success]-> Closed
	                                                             |
	                                                         [failure]
	                                                             |
	                                                             v
	                                                           Open

The half-open transition is evaluated lazily, on the next call or state read
after the cooldown.
*/
package resilience
