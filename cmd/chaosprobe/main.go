package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/resilience-lab/internal/client"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/resilience-lab/internal/probe"
)

func main() {
	defaults := probe.DefaultConfig()

	baseURL := flag.String("api", client.DefaultConfig().BaseURL, "Mock API root URL")
	endpoint := flag.String("endpoint", defaults.Endpoint, "Endpoint to probe: "+strings.Join(probe.Endpoints, ", "))
	requests := flag.Int("n", defaults.Requests, "Number of requests")
	concurrency := flag.Int("c", defaults.Concurrency, "Concurrent requests")
	timeout := flag.Duration("timeout", defaults.Timeout, "Per-request timeout")
	preset := flag.String("preset", "", "Chaos preset to apply before probing")
	useBreaker := flag.Bool("breaker", false, "Route calls through a circuit breaker")
	resetTimeout := flag.Duration("reset-timeout", 10*time.Second, "Breaker cooldown")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := client.DefaultConfig()
	cfg.BaseURL = *baseURL
	api := client.New(cfg)

	if *preset != "" {
		if _, err := api.ApplyPreset(ctx, *preset); err != nil {
			log.Fatalf("Failed to apply preset %q: %v", *preset, err)
		}
	}

	probeCfg := probe.Config{
		Endpoint:    *endpoint,
		Requests:    *requests,
		Concurrency: *concurrency,
		Timeout:     *timeout,
	}
	if *useBreaker {
		settings := resilience.DefaultSettings()
		settings.ResetTimeout = *resetTimeout
		probeCfg.Breaker = &settings
	}

	report, err := probe.Run(ctx, api, probeCfg)
	if err != nil {
		log.Fatalf("Probe failed: %v", err)
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Print(string(out))
}
