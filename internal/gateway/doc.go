// Package gateway is the consumer side of the workshop: the routes a page
// would call, each guarding its upstream call with a circuit breaker or a
// timeout-bounded query.
//
//   - /api/proxy/products and /api/proxy/products/:id sit behind circuit
//     breakers and degrade to a 503 fallback body
//   - /api/dashboard loads critical transactions and optional analytics
//     through the prefetcher
//   - /api/circuits exposes breaker state for status indicators
package gateway
