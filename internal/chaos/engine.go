package chaos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
)

const (
	hangProbability      = 0.3
	malformedProbability = 0.3
)

// ErrClosed is returned for requests still hanging when the engine closes.
var ErrClosed = errors.New("chaos engine closed")

// Fault names the chaos applied to one response.
type Fault string

const (
	FaultNone      Fault = ""
	FaultForced    Fault = "forced"
	FaultFailure   Fault = "failure"
	FaultTimeout   Fault = "timeout"
	FaultMalformed Fault = "malformed"
)

// Force ties an endpoint to one of the forced-failure flags.
type Force int

const (
	ForceNone Force = iota
	ForceCritical
	ForceOptional
)

func (f Force) active(s Settings) bool {
	switch f {
	case ForceCritical:
		return s.CriticalEndpointFailure
	case ForceOptional:
		return s.OptionalEndpointFailure
	default:
		return false
	}
}

// Endpoint identifies a route to the engine.
type Endpoint struct {
	Name  string
	Force Force
}

// Producer builds the payload for a request. It runs after the delay.
type Producer func() (any, error)

// Response is the outcome of Process, ready to write. Body is JSON.
type Response struct {
	Status int
	Body   []byte
	Fault  Fault
	Delay  time.Duration
}

var (
	internalErrorBody = []byte(`{"error":"Internal Server Error"}`)
	forcedErrorBody   = []byte(`{"error":"Service unavailable: forced endpoint failure"}`)
)

// Engine applies the chaos pipeline to requests.
type Engine struct {
	store   *Store
	rng     Random
	logger  *logging.Logger
	metrics *monitoring.Metrics

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom sets the randomness source.
func WithRandom(rng Random) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records faults and delays.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// NewEngine creates an engine reading its settings from store.
func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		rng:    NewRandom(0),
		logger: logging.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the settings store.
func (e *Engine) Store() *Store {
	return e.store
}

// Close releases every hanging request.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

// Process runs the chaos pipeline for one request. Settings are re-read at
// each step, so a change made while a request is delayed applies to the rest
// of that request. The returned error is either ctx.Err(), ErrClosed, or the
// producer's error; in all three cases Response is not meaningful.
func (e *Engine) Process(ctx context.Context, endpoint Endpoint, produce Producer) (Response, error) {
	// Forced failures bypass the random draws entirely.
	if endpoint.Force.active(e.store.Snapshot()) {
		e.record(endpoint, FaultForced)
		return Response{Status: http.StatusInternalServerError, Body: forcedErrorBody, Fault: FaultForced}, nil
	}

	if e.rng.Float64() < e.store.Snapshot().FailureRate {
		e.record(endpoint, FaultFailure)
		return Response{Status: http.StatusInternalServerError, Body: internalErrorBody, Fault: FaultFailure}, nil
	}

	if e.store.Snapshot().Timeout && e.rng.Float64() < hangProbability {
		e.record(endpoint, FaultTimeout)
		return Response{Fault: FaultTimeout}, e.hang(ctx)
	}

	delay := e.store.Snapshot().Latency(e.rng)
	if err := e.sleep(ctx, delay); err != nil {
		return Response{Delay: delay}, err
	}
	if e.metrics != nil {
		e.metrics.ObserveChaosDelay(delay)
	}

	data, err := produce()
	if err != nil {
		return Response{Delay: delay}, err
	}

	body, err := jsonAPI.Marshal(data)
	if err != nil {
		return Response{Delay: delay}, fmt.Errorf("encode %s payload: %w", endpoint.Name, err)
	}

	resp := Response{Status: http.StatusOK, Body: body, Delay: delay}
	if e.store.Snapshot().MalformedData && e.rng.Float64() < malformedProbability {
		corrupted, err := Corrupt(body, e.rng)
		if err != nil {
			return resp, err
		}
		resp.Body = corrupted
		resp.Fault = FaultMalformed
		e.record(endpoint, FaultMalformed)
	}
	return resp, nil
}

// hang blocks until the caller gives up or the engine closes.
func (e *Engine) hang(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

func (e *Engine) record(endpoint Endpoint, fault Fault) {
	e.logger.Debug("Chaos injected",
		zap.String("endpoint", endpoint.Name),
		zap.String("fault", string(fault)))
	if e.metrics != nil {
		e.metrics.RecordChaos(string(fault))
	}
}
