package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/api/middleware"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/tracing"
)

// ShutdownTimeout bounds how long in-flight requests may take to drain.
const ShutdownTimeout = 10 * time.Second

// socketPath is served without compression so the upgrade can hijack the
// connection.
const socketPath = "/socket"

// Server wraps an HTTP listener and the components it must close on exit.
type Server struct {
	name    string
	addr    string
	router  *gin.Engine
	handler http.Handler
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	// releasers run before draining: they end requests that would
	// otherwise never finish. closers run after.
	releasers []func()
	closers   []func()
}

// newServer sets up logging, metrics, tracing and the shared middleware
// stack for one process.
func newServer(cfg *config.Config, name, addr string) *Server {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development).Component(name)

	metrics := monitoring.NewMetrics(name)
	logger.Info("Performance monitoring initialized")

	tracer := tracing.New(name, logger)
	logger.Info("Distributed tracing initialized")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.Origins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		if cfg.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(limit))
		} else {
			router.Use(middleware.RateLimit(limit))
		}
	}
	router.Use(middleware.RequestLogger(logger))

	return &Server{
		name:    name,
		addr:    addr,
		router:  router,
		handler: router,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// compress wraps the router in gzip, keeping the websocket path raw.
func (s *Server) compress() error {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(gzhttp.DefaultMinSize))
	if err != nil {
		return fmt.Errorf("gzip wrapper: %w", err)
	}
	gz := wrap(s.router)

	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, socketPath) {
			s.router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
	s.logger.Info("Response compression enabled")
	return nil
}

func (s *Server) onShutdown(fn func()) {
	s.releasers = append(s.releasers, fn)
}

func (s *Server) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Logger returns the process logger.
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Metrics returns the process metrics.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run listens on the configured address until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			zap.String("service", s.name),
			zap.String("addr", ln.Addr().String()),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	runAll(&s.releasers)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runAll runs and clears fns, last registered first.
func runAll(fns *[]func()) {
	list := *fns
	*fns = nil
	for i := len(list) - 1; i >= 0; i-- {
		list[i]()
	}
}

// Close releases every component and flushes the logger.
func (s *Server) Close() error {
	runAll(&s.releasers)
	runAll(&s.closers)
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
