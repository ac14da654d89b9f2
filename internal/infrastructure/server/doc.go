/*
Package server assembles the two processes of the lab from configuration.

NewMockServer builds the chaos mock API: fixtures, the chaos engine, the
settings store and the websocket hub that tells observers about settings
changes. NewGatewayServer builds the consumer-facing gateway: the API
client, the circuit breaker registry and the prefetcher.

Both share one middleware stack (recovery, tracing, metrics, CORS, optional
rate limiting, request logging) and optional gzip compression. The
websocket path is never compressed.

Example Usage:

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	srv, err := server.NewMockServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package server
