// Package client provides typed calls to the chaos mock API.
//
// Built on go-resty/resty over a go-retryablehttp pooled transport:
//   - Retries are off by default so circuit breakers see every failure
//   - Every call is bounded by the caller's context
//   - Trace headers are propagated from the context
//   - An optional token bucket limits the outgoing request rate
//
// Any non-2xx answer becomes a *StatusError. Payload shape is not validated;
// corrupted keys simply decode to zero values.
//
// Example Usage:
//
//	api := client.New(client.DefaultConfig()).WithMetrics(metrics)
//	products, err := api.Products(ctx)
package client
