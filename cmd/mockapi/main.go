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

	// Flags override env vars
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.Float64Var(&cfg.Chaos.FailureRate, "failure-rate", cfg.Chaos.FailureRate, "Initial failure rate in [0,1]")
	flag.StringVar(&cfg.Chaos.PresetsFile, "presets", cfg.Chaos.PresetsFile, "TOML file with extra chaos presets")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewMockServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}
