/*
Package probe measures how a chaos-configured endpoint behaves from the
caller's side.

A run fires a fixed number of requests through the API client, optionally
behind a circuit breaker, and reports the failure proportion, timeouts,
short circuits and latency statistics (mean, standard deviation and
quantiles, computed with gonum).

Example Usage:

	api := client.New(client.DefaultConfig())
	report, err := probe.Run(ctx, api, probe.Config{
		Endpoint:    "products",
		Requests:    200,
		Concurrency: 8,
		Timeout:     2 * time.Second,
	})
*/
package probe
