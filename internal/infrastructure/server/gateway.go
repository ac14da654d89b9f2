package server

import (
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/client"
	"github.com/GriffinCanCode/resilience-lab/internal/gateway"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/resilience-lab/internal/prefetch"
	"github.com/GriffinCanCode/resilience-lab/internal/reporting"
)

// GatewayServer is the consumer-facing process that reaches the mock API
// through circuit breakers and timeout-bounded prefetches.
type GatewayServer struct {
	*Server
	breakers *resilience.Registry
	queries  *prefetch.QueryClient
}

// NewGatewayServer assembles the gateway from cfg.
func NewGatewayServer(cfg *config.Config) (*GatewayServer, error) {
	s := newServer(cfg, "gateway", net.JoinHostPort(cfg.Gateway.Host, cfg.Gateway.Port))

	built := false
	defer func() {
		if !built {
			_ = s.Close()
		}
	}()

	s.logger.Info("Initializing Resilience Gateway",
		zap.String("addr", s.addr),
		zap.String("upstream", cfg.Gateway.APIURL),
		zap.Duration("prefetch_timeout", cfg.Gateway.PrefetchTimeout),
	)

	clientCfg := client.DefaultConfig()
	clientCfg.BaseURL = cfg.Gateway.APIURL
	clientCfg.Timeout = cfg.Client.Timeout
	clientCfg.Retries = cfg.Client.Retries
	clientCfg.RateLimit = cfg.Client.RateLimit
	api := client.New(clientCfg).WithMetrics(s.metrics).WithLogger(s.logger)

	breakers := resilience.NewRegistry(breakerSettings(cfg.Breaker),
		resilience.WithListener(resilience.LogEvents(s.logger)),
		resilience.WithListener(s.metrics.ObserveBreaker),
	)

	queries, err := prefetch.NewQueryClient(prefetch.QueryClientConfig{
		MaximumSize: cfg.Gateway.QueryCacheSize,
		GCTime:      cfg.Gateway.QueryGCTime,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	s.onClose(queries.Close)

	prefetcher := prefetch.New(queries,
		prefetch.WithTimeout(cfg.Gateway.PrefetchTimeout),
		prefetch.WithReporter(reporting.NewLogReporter(s.logger)),
		prefetch.WithMetrics(s.metrics),
		prefetch.WithLogger(s.logger),
	)

	gateway.New(api, breakers, prefetcher, s.logger).Register(s.router)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	if cfg.Compression.Enabled {
		if err := s.compress(); err != nil {
			return nil, err
		}
	}

	built = true
	return &GatewayServer{Server: s, breakers: breakers, queries: queries}, nil
}

// Breakers returns the circuit registry.
func (g *GatewayServer) Breakers() *resilience.Registry {
	return g.breakers
}

func breakerSettings(cfg config.BreakerConfig) resilience.Settings {
	settings := resilience.DefaultSettings()
	settings.CallTimeout = cfg.CallTimeout
	settings.ErrorThresholdPercentage = cfg.ErrorThreshold
	settings.ResetTimeout = cfg.ResetTimeout
	settings.RollingWindow = cfg.RollingWindow
	settings.Buckets = cfg.RollingBuckets
	settings.VolumeThreshold = uint32(cfg.VolumeThreshold)
	settings.IsFailure = gateway.IsUpstreamFailure
	return settings
}
