/*
Package monitoring provides Prometheus metrics for the mock API and the
gateway.

# Overview

Each process owns a Metrics value backed by its own registry, so tests can
create as many as they like without colliding on the default registerer.

# Features

- HTTP request metrics (latency, throughput, size) keyed by route template
- Chaos injection counters and artificial delay histogram
- Upstream call metrics
- Circuit breaker state gauge and event counters
- Prefetch outcome and duration metrics
- WebSocket connection metrics
- Uptime and Go runtime collectors

# Usage

	metrics := monitoring.NewMetrics("gateway")
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	registry := resilience.NewRegistry(settings,
		resilience.WithListener(metrics.ObserveBreaker))

	timer := monitoring.NewTimer(metrics, "GET /products")
	// ... perform call ...
	timer.Stop("200")
*/
package monitoring
