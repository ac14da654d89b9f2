package probe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/resilience-lab/internal/client"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
)

// Endpoints lists the names accepted by Config.Endpoint.
var Endpoints = []string{"products", "product", "profile", "orders", "transactions", "analytics"}

// Config describes one probe run.
type Config struct {
	Endpoint    string
	Requests    int
	Concurrency int
	// Timeout bounds each request. Zero leaves only the client timeout.
	Timeout time.Duration
	// Breaker routes every request through one circuit breaker when set.
	Breaker *resilience.Settings
}

// DefaultConfig probes the products endpoint with 100 sequential calls.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "products",
		Requests:    100,
		Concurrency: 1,
		Timeout:     5 * time.Second,
	}
}

// Sample is the outcome of one request.
type Sample struct {
	Duration time.Duration
	Err      error
}

// Latency summarizes request durations in milliseconds.
type Latency struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	P50    float64 `json:"p50" yaml:"p50"`
	P90    float64 `json:"p90" yaml:"p90"`
	P99    float64 `json:"p99" yaml:"p99"`
	Max    float64 `json:"max" yaml:"max"`
}

// Report is the result of a probe run.
type Report struct {
	Endpoint      string  `json:"endpoint" yaml:"endpoint"`
	Requests      int     `json:"requests" yaml:"requests"`
	Successes     int     `json:"successes" yaml:"successes"`
	Failures      int     `json:"failures" yaml:"failures"`
	Timeouts      int     `json:"timeouts" yaml:"timeouts"`
	ShortCircuits int     `json:"shortCircuits" yaml:"shortCircuits"`
	FailureRate   float64 `json:"failureRate" yaml:"failureRate"`
	// Latency covers calls that reached the server; short circuits are
	// excluded.
	Latency      Latency `json:"latency" yaml:"latency"`
	CircuitState string  `json:"circuitState,omitempty" yaml:"circuitState,omitempty"`
}

// Run fires cfg.Requests calls at cfg.Endpoint and summarizes them.
func Run(ctx context.Context, api *client.Client, cfg Config) (Report, error) {
	call, err := caller(api, cfg.Endpoint)
	if err != nil {
		return Report{}, err
	}
	if cfg.Requests <= 0 {
		return Report{}, fmt.Errorf("requests must be positive, got %d", cfg.Requests)
	}

	var breaker *resilience.Breaker
	if cfg.Breaker != nil {
		breaker = resilience.New("probe-"+cfg.Endpoint, *cfg.Breaker)
	}

	samples := make([]Sample, cfg.Requests)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i := range cfg.Requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reqCtx := gctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				reqCtx, cancel = context.WithTimeout(gctx, cfg.Timeout)
				defer cancel()
			}

			start := time.Now()
			var err error
			if breaker != nil {
				_, err = resilience.Call(reqCtx, breaker, func(ctx context.Context) (struct{}, error) {
					return struct{}{}, call(ctx)
				})
			} else {
				err = call(reqCtx)
			}

			samples[i] = Sample{Duration: time.Since(start), Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Summarize(cfg.Endpoint, samples)
	if breaker != nil {
		report.CircuitState = breaker.State().String()
	}
	return report, nil
}

// Summarize counts outcomes and computes latency statistics.
func Summarize(endpoint string, samples []Sample) Report {
	report := Report{Endpoint: endpoint, Requests: len(samples)}

	durations := make([]float64, 0, len(samples))
	for _, s := range samples {
		switch {
		case s.Err == nil:
			report.Successes++
		case resilience.IsShortCircuit(s.Err):
			report.ShortCircuits++
			continue
		case errors.Is(s.Err, context.DeadlineExceeded), errors.Is(s.Err, resilience.ErrTimeout):
			report.Timeouts++
			report.Failures++
		default:
			report.Failures++
		}
		durations = append(durations, float64(s.Duration)/float64(time.Millisecond))
	}

	if report.Requests > 0 {
		report.FailureRate = float64(report.Failures+report.ShortCircuits) / float64(report.Requests)
	}
	report.Latency = summarizeLatency(durations)
	return report
}

func summarizeLatency(ms []float64) Latency {
	if len(ms) == 0 {
		return Latency{}
	}
	sort.Float64s(ms)

	var lat Latency
	lat.Mean, lat.StdDev = stat.MeanStdDev(ms, nil)
	if len(ms) == 1 {
		lat.StdDev = 0
	}
	lat.P50 = stat.Quantile(0.5, stat.Empirical, ms, nil)
	lat.P90 = stat.Quantile(0.9, stat.Empirical, ms, nil)
	lat.P99 = stat.Quantile(0.99, stat.Empirical, ms, nil)
	lat.Max = ms[len(ms)-1]
	return lat
}

func caller(api *client.Client, endpoint string) (func(context.Context) error, error) {
	switch endpoint {
	case "products":
		return func(ctx context.Context) error { _, err := api.Products(ctx); return err }, nil
	case "product":
		var n int
		var mu sync.Mutex
		return func(ctx context.Context) error {
			mu.Lock()
			n = n%5 + 1
			id := strconv.Itoa(n)
			mu.Unlock()
			_, err := api.Product(ctx, id)
			return err
		}, nil
	case "profile":
		return func(ctx context.Context) error { _, err := api.UserProfile(ctx); return err }, nil
	case "orders":
		return func(ctx context.Context) error { _, err := api.Orders(ctx); return err }, nil
	case "transactions":
		return func(ctx context.Context) error { _, err := api.Transactions(ctx, 10); return err }, nil
	case "analytics":
		return func(ctx context.Context) error { _, err := api.Analytics(ctx); return err }, nil
	default:
		return nil, fmt.Errorf("unknown endpoint %q (want one of %v)", endpoint, Endpoints)
	}
}
