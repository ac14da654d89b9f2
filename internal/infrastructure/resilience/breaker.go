package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker is half-open and a trial call is already in flight")
	ErrTimeout         = errors.New("circuit breaker call timed out")
)

// IsShortCircuit reports whether err is a deliberate refusal by a breaker
// rather than a failure of the protected operation.
func IsShortCircuit(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its string form.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// CallTimeout bounds each protected call; exceeding it counts as a failure.
	// Zero disables the bound.
	CallTimeout time.Duration
	// ErrorThresholdPercentage trips the circuit when the window failure
	// percentage exceeds it.
	ErrorThresholdPercentage float64
	// VolumeThreshold is the minimum number of calls in the window before
	// the circuit may trip.
	VolumeThreshold uint32
	// ResetTimeout is the cooldown spent open before a half-open trial.
	ResetTimeout time.Duration
	// RollingWindow is the span of the statistics window.
	RollingWindow time.Duration
	// Buckets is the number of buckets RollingWindow is divided into.
	Buckets int
	// IsFailure decides whether an error from the operation counts against
	// the circuit. Defaults to err != nil.
	IsFailure func(err error) bool
	// OnEvent receives state transitions and per-call outcomes.
	OnEvent func(Event)
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// DefaultSettings mirrors the workshop defaults: 3s calls, 50% threshold,
// 10s cooldown, 30s window in 10 buckets.
func DefaultSettings() Settings {
	return Settings{
		CallTimeout:              3 * time.Second,
		ErrorThresholdPercentage: 50,
		ResetTimeout:             10 * time.Second,
		RollingWindow:            30 * time.Second,
		Buckets:                  10,
	}
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	window     *Window
	generation uint64
	openedAt   time.Time
	trial      bool
	pending    []Event
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	defaults := DefaultSettings()
	if settings.ErrorThresholdPercentage <= 0 {
		settings.ErrorThresholdPercentage = defaults.ErrorThresholdPercentage
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = defaults.ResetTimeout
	}
	if settings.RollingWindow <= 0 {
		settings.RollingWindow = defaults.RollingWindow
	}
	if settings.Buckets <= 0 {
		settings.Buckets = defaults.Buckets
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		window:   NewWindow(settings.RollingWindow, settings.Buckets),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// Settings returns the effective settings.
func (b *Breaker) Settings() Settings {
	return b.settings
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	state, _ := b.currentState(b.settings.Clock())
	events := b.drain()
	b.mu.Unlock()

	b.dispatch(events)
	return state
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	Name              string    `json:"name"`
	State             State     `json:"state"`
	Counts            Counts    `json:"counts"`
	FailurePercentage float64   `json:"failurePercentage"`
	OpenedAt          time.Time `json:"openedAt,omitzero"`
	RetryAt           time.Time `json:"retryAt,omitzero"`
}

// Stats returns the current state and window counts.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	now := b.settings.Clock()
	state, _ := b.currentState(now)
	counts := b.window.Counts(now)
	stats := Stats{
		Name:              b.name,
		State:             state,
		Counts:            counts,
		FailurePercentage: counts.FailurePercentage(),
	}
	if state == StateOpen {
		stats.OpenedAt = b.openedAt
		stats.RetryAt = b.openedAt.Add(b.settings.ResetTimeout)
	}
	events := b.drain()
	b.mu.Unlock()

	b.dispatch(events)
	return stats
}

// Counts returns a copy of the window counts
func (b *Breaker) Counts() Counts {
	return b.Stats().Counts
}

// Execute runs fn if the circuit breaker accepts it. fn receives a context
// bounded by CallTimeout.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	return b.ExecuteWithFallback(ctx, fn, nil)
}

// ExecuteWithFallback runs fn like Execute. When the call is short-circuited
// or fails, fallback (if non-nil) supplies the result instead and a fallback
// event is emitted.
func (b *Breaker) ExecuteWithFallback(
	ctx context.Context,
	fn func(context.Context) (any, error),
	fallback func(context.Context, error) (any, error),
) (any, error) {
	generation, err := b.beforeRequest()
	if err != nil {
		b.emit(Event{Type: EventReject, Err: err})
		return b.fallback(ctx, fallback, err)
	}

	start := b.settings.Clock()
	result, outcome, err, panicked := b.run(ctx, fn)
	b.afterRequest(generation, outcome, err, b.settings.Clock().Sub(start))

	if panicked != nil {
		panic(panicked)
	}
	if outcome == OutcomeFailure || outcome == OutcomeTimeout {
		return b.fallback(ctx, fallback, err)
	}
	return result, err
}

const outcomeIgnored Outcome = -1

type callResult struct {
	value    any
	err      error
	panicked any
}

// run executes fn under the per-call timeout and classifies the outcome.
func (b *Breaker) run(ctx context.Context, fn func(context.Context) (any, error)) (any, Outcome, error, any) {
	callCtx := ctx
	cancel := func() {}
	if b.settings.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.settings.CallTimeout)
	}
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- callResult{panicked: p}
			}
		}()
		v, err := fn(callCtx)
		done <- callResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.panicked != nil {
			return nil, OutcomeFailure, nil, r.panicked
		}
		return b.classify(ctx, r.value, r.err)
	case <-callCtx.Done():
		// The operation keeps running; only its result is abandoned.
		if ctx.Err() != nil {
			return nil, outcomeIgnored, ctx.Err(), nil
		}
		return nil, OutcomeTimeout, fmt.Errorf("%s: %w after %s", b.name, ErrTimeout, b.settings.CallTimeout), nil
	}
}

func (b *Breaker) classify(ctx context.Context, value any, err error) (any, Outcome, error, any) {
	switch {
	case err == nil:
		return value, OutcomeSuccess, nil, nil
	case ctx.Err() != nil:
		return value, outcomeIgnored, err, nil
	case b.settings.CallTimeout > 0 && errors.Is(err, context.DeadlineExceeded):
		return value, OutcomeTimeout, fmt.Errorf("%s: %w after %s: %w", b.name, ErrTimeout, b.settings.CallTimeout, err), nil
	case !b.settings.IsFailure(err):
		return value, OutcomeSuccess, err, nil
	default:
		return value, OutcomeFailure, err, nil
	}
}

func (b *Breaker) fallback(ctx context.Context, fallback func(context.Context, error) (any, error), err error) (any, error) {
	if fallback == nil {
		return nil, err
	}
	b.emit(Event{Type: EventFallback, Err: err})
	return fallback(ctx, err)
}

// beforeRequest is called before a request is executed
func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	now := b.settings.Clock()
	state, generation := b.currentState(now)

	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.trial {
			err = ErrTooManyRequests
		} else {
			b.trial = true
		}
	}
	if err != nil {
		b.window.Record(now, OutcomeReject)
	}
	events := b.drain()
	b.mu.Unlock()

	b.dispatch(events)
	return generation, err
}

// afterRequest is called after a request is executed
func (b *Breaker) afterRequest(before uint64, outcome Outcome, err error, took time.Duration) {
	b.mu.Lock()
	now := b.settings.Clock()
	state, generation := b.currentState(now)

	// A call that started under a previous state no longer speaks for the
	// current window.
	if generation == before {
		switch outcome {
		case outcomeIgnored:
			if state == StateHalfOpen {
				b.trial = false
			}
		case OutcomeSuccess:
			b.onSuccess(state, now)
		default:
			b.onFailure(state, now, outcome)
		}
	}

	if outcome != outcomeIgnored {
		b.pending = append(b.pending, Event{Type: outcomeEvent(outcome), Err: err, Duration: took})
	}
	events := b.drain()
	b.mu.Unlock()

	b.dispatch(events)
}

// onSuccess handles successful requests
func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.window.Record(now, OutcomeSuccess)
	case StateHalfOpen:
		b.setState(StateClosed, now)
	}
}

// onFailure handles failed requests
func (b *Breaker) onFailure(state State, now time.Time, outcome Outcome) {
	switch state {
	case StateClosed:
		b.window.Record(now, outcome)
		if b.shouldTrip(b.window.Counts(now)) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) shouldTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < b.settings.VolumeThreshold {
		return false
	}
	return counts.FailurePercentage() > b.settings.ErrorThresholdPercentage
}

// currentState returns the current state and generation
func (b *Breaker) currentState(now time.Time) (State, uint64) {
	if b.state == StateOpen && !now.Before(b.openedAt.Add(b.settings.ResetTimeout)) {
		b.setState(StateHalfOpen, now)
	}
	return b.state, b.generation
}

// setState changes the state of the circuit breaker
func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.generation++
	b.trial = false

	switch state {
	case StateClosed:
		b.window.Reset()
		b.openedAt = time.Time{}
	case StateOpen:
		b.openedAt = now
	}

	b.pending = append(b.pending, Event{Type: transitionEvent(state), From: prev, To: state})
}

func (b *Breaker) drain() []Event {
	events := b.pending
	b.pending = nil
	return events
}

func (b *Breaker) emit(ev Event) {
	b.dispatch([]Event{ev})
}

// dispatch delivers events outside the lock so listeners may call back in.
func (b *Breaker) dispatch(events []Event) {
	if b.settings.OnEvent == nil {
		return
	}
	now := b.settings.Clock()
	for _, ev := range events {
		ev.Circuit = b.name
		if ev.At.IsZero() {
			ev.At = now
		}
		b.settings.OnEvent(ev)
	}
}

// Call is the typed form of Breaker.Execute.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	return CallWithFallback(ctx, b, fn, nil)
}

// CallWithFallback is the typed form of Breaker.ExecuteWithFallback.
func CallWithFallback[T any](
	ctx context.Context,
	b *Breaker,
	fn func(context.Context) (T, error),
	fallback func(context.Context, error) (T, error),
) (T, error) {
	var fb func(context.Context, error) (any, error)
	if fallback != nil {
		fb = func(ctx context.Context, err error) (any, error) {
			return fallback(ctx, err)
		}
	}

	result, err := b.ExecuteWithFallback(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, fb)

	value, _ := result.(T)
	return value, err
}
