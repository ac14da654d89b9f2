/*
Package tracing provides lightweight request tracing between the gateway and
the mock API.

# Overview

A trace id is minted at the first hop (or taken from X-Trace-ID), carried in
the request context, and forwarded on upstream calls. Completed spans are
handed to a buffered collector and written to the structured log.

# Features

- Trace context propagation via X-Trace-ID and X-Span-ID headers
- Span creation with parent-child relationships
- Gin middleware for automatic instrumentation
- Buffered, asynchronous span collection (1000 spans)

# Usage

	tracer := tracing.New("gateway", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Outgoing call
	tracing.Inject(ctx, req.Header)
*/
package tracing
