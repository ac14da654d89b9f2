package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	flag.StringVar(&cfg.Gateway.Port, "port", cfg.Gateway.Port, "Gateway port")
	flag.StringVar(&cfg.Gateway.APIURL, "api", cfg.Gateway.APIURL, "Mock API root URL")
	flag.DurationVar(&cfg.Gateway.PrefetchTimeout, "prefetch-timeout", cfg.Gateway.PrefetchTimeout, "Per-query prefetch timeout")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewGatewayServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		srv.Close()
		log.Fatalf("Gateway error: %v", err)
	}
}
