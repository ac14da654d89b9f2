/*
Package chaos implements the fault injection behind the mock API.

# Overview

An Engine runs every request through the same pipeline, reading the live
Settings from a Store at each step:

 1. Forced failure: an endpoint bound to a force flag answers 500 whenever
    the flag is set, before any random draw.
 2. Random failure: with probability FailureRate, answer 500 immediately.
 3. Hang: if Timeout is on, 30% of requests never answer.
 4. Latency: wait a uniform delay in [LatencyMin, LatencyMax) ms.
 5. Produce the payload; if MalformedData is on, 30% of payloads have some
    keys renamed with a "corrupted_" prefix (see Corrupt).

Corruption is not a fixed schema change: each corrupted response renames
its own random subset of keys, so the same field may be intact in one
response and renamed in the next.

The Store is an explicit object handed to the engine and HTTP handlers.
Every change is validated and then pushed to the subscribed Broadcasters,
which is how connected dashboards learn about new settings.

# Usage

	store := chaos.NewStore(chaos.DefaultSettings(), hub)
	engine := chaos.NewEngine(store, chaos.WithRandom(chaos.NewRandom(42)))
	defer engine.Close()

	resp, err := engine.Process(ctx, chaos.Endpoint{Name: "products"}, func() (any, error) {
		return catalog.Products(12), nil
	})
*/
package chaos
