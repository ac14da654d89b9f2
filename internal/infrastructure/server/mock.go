package server

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/resilience-lab/internal/api/http"
	"github.com/GriffinCanCode/resilience-lab/internal/api/ws"
	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/config"
)

// MockServer is the chaos mock API process.
type MockServer struct {
	*Server
	store  *chaos.Store
	engine *chaos.Engine
	hub    *ws.Hub
}

// NewMockServer assembles the chaos mock API from cfg.
func NewMockServer(cfg *config.Config) (*MockServer, error) {
	s := newServer(cfg, "mockapi", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port))

	built := false
	defer func() {
		if !built {
			_ = s.Close()
		}
	}()

	minLatency, maxLatency := cfg.Chaos.ChaosLatency()
	s.logger.Info("Initializing Chaos Mock API",
		zap.String("addr", s.addr),
		zap.Float64("failure_rate", cfg.Chaos.FailureRate),
		zap.Duration("latency_min", minLatency),
		zap.Duration("latency_max", maxLatency),
		zap.Bool("timeout", cfg.Chaos.Timeout),
		zap.Bool("malformed", cfg.Chaos.MalformedData),
	)

	initial := chaos.Settings{
		FailureRate:   cfg.Chaos.FailureRate,
		LatencyMin:    cfg.Chaos.LatencyMinMS,
		LatencyMax:    cfg.Chaos.LatencyMaxMS,
		Timeout:       cfg.Chaos.Timeout,
		MalformedData: cfg.Chaos.MalformedData,
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	presets := chaos.BuiltinPresets()
	if cfg.Chaos.PresetsFile != "" {
		extra, err := chaos.LoadPresetFile(cfg.Chaos.PresetsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load presets: %w", err)
		}
		presets = presets.With(extra...)
		s.logger.Info("Loaded chaos presets",
			zap.String("file", cfg.Chaos.PresetsFile),
			zap.Int("count", len(extra)),
		)
	}

	catalog, err := fixtures.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	rng := chaos.NewRandom(uint64(cfg.Chaos.Seed))

	hub := ws.NewHub(s.logger, s.metrics)
	store := chaos.NewStore(initial, apihttp.BroadcastSettings(hub))
	hub.OnConnect(apihttp.SettingsGreeting(store))

	engine := chaos.NewEngine(store,
		chaos.WithRandom(rng),
		chaos.WithLogger(s.logger),
		chaos.WithMetrics(s.metrics),
	)

	apihttp.NewHandlers(catalog, engine, presets, hub, s.metrics, s.logger, rng).Register(s.router)

	if cfg.Compression.Enabled {
		if err := s.compress(); err != nil {
			return nil, err
		}
	}

	s.onShutdown(hub.Close)
	s.onShutdown(engine.Close)

	built = true
	return &MockServer{Server: s, store: store, engine: engine, hub: hub}, nil
}

// Store returns the live chaos settings.
func (m *MockServer) Store() *chaos.Store {
	return m.store
}
