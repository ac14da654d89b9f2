package prefetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/resilience-lab/internal/reporting"
)

// DefaultTimeout bounds a query when neither the prefetcher nor the query
// sets one.
const DefaultTimeout = 5 * time.Second

// Query describes one fetch.
type Query[T any] struct {
	Key   Key
	Fetch func(ctx context.Context) (T, error)
	// Timeout overrides the prefetcher's timeout for this query.
	Timeout time.Duration
	// StaleTime lets a cached value younger than this answer without a fetch.
	StaleTime time.Duration
	// Tag categorizes reported errors, e.g. "TransactionsError".
	Tag string
}

// Prefetcher holds what every query shares: the cache layer, the default
// timeout and the error sink.
type Prefetcher struct {
	client   *QueryClient
	timeout  time.Duration
	reporter reporting.Reporter
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// Option configures a Prefetcher.
type Option func(*Prefetcher)

// WithTimeout sets the default race timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prefetcher) { p.timeout = d }
}

// WithReporter sets the sink every error is reported to.
func WithReporter(r reporting.Reporter) Option {
	return func(p *Prefetcher) { p.reporter = r }
}

// WithMetrics records every outcome.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Prefetcher) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Prefetcher) { p.logger = l.Component("prefetch") }
}

// New creates a prefetcher. client may be nil, in which case every query
// fetches directly and nothing is cached.
func New(client *QueryClient, opts ...Option) *Prefetcher {
	p := &Prefetcher{
		client:   client,
		timeout:  DefaultTimeout,
		reporter: reporting.Nop(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client returns the attached query client, if any.
func (p *Prefetcher) Client() *QueryClient {
	return p.client
}

// Dehydrate snapshots the attached query client. It is empty without one.
func (p *Prefetcher) Dehydrate() DehydratedState {
	if p.client == nil {
		return DehydratedState{Queries: []DehydratedQuery{}}
	}
	return p.client.Dehydrate()
}

type outcome[T any] struct {
	data T
	err  error
}

// Prefetch runs q and waits at most the query timeout for it. It never
// returns an error directly: failures, timeouts and cancellation of ctx all
// come back as error results after being reported. The fetch itself runs
// without ctx's cancellation and is left running if it loses the race.
func Prefetch[T any](ctx context.Context, p *Prefetcher, q Query[T]) Result[T] {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	start := time.Now()

	done := make(chan outcome[T], 1)
	go func() {
		var o outcome[T]
		defer func() {
			if r := recover(); r != nil {
				o.err = fmt.Errorf("query %s panicked: %v", q.Key, r)
			}
			done <- o
		}()
		o.data, o.err = run(context.WithoutCancel(ctx), p.client, q)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res Result[T]
	select {
	case o := <-done:
		if o.err != nil {
			res = ErrorResult[T](o.err)
		} else {
			res = DataResult(o.data)
		}
	case <-timer.C:
		res = ErrorResult[T](&TimeoutError{Key: q.Key, After: timeout})
	case <-ctx.Done():
		res = ErrorResult[T](ctx.Err())
	}

	p.observe(q.Key, q.Tag, res.Err(), time.Since(start))
	return res
}

// CriticalQuery returns the data, or a *QueryError wrapping the failure for
// a surrounding failure boundary to handle.
func CriticalQuery[T any](ctx context.Context, p *Prefetcher, q Query[T]) (T, error) {
	res := Prefetch(ctx, p, q)
	if !res.IsData() {
		var zero T
		return zero, &QueryError{Key: q.Key, Err: res.Err()}
	}
	return res.Data(), nil
}

// OptionalQuery returns the data and true, or the zero value and false when
// the query failed. It never returns an error.
func OptionalQuery[T any](ctx context.Context, p *Prefetcher, q Query[T]) (T, bool) {
	res := Prefetch(ctx, p, q)
	if !res.IsData() {
		var zero T
		return zero, false
	}
	return res.Data(), true
}

func run[T any](ctx context.Context, client *QueryClient, q Query[T]) (T, error) {
	if client == nil {
		return q.Fetch(ctx)
	}

	v, err := client.Fetch(ctx, q.Key, q.StaleTime, func(ctx context.Context) (any, error) {
		return q.Fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	data, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query %s: cached %T is not %T", q.Key, v, zero)
	}
	return data, nil
}

func (p *Prefetcher) observe(key Key, tag string, err error, elapsed time.Duration) {
	label := string(KindData)
	switch {
	case IsTimeout(err):
		label = "timeout"
	case err != nil:
		label = string(KindError)
	}
	if p.metrics != nil {
		p.metrics.RecordPrefetch(key.Name(), label, elapsed)
	}
	if err == nil {
		return
	}

	p.logger.Debug("Query failed",
		zap.String("key", key.String()),
		zap.String("outcome", label),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
	if tag != "" {
		err = reporting.Tag(err, tag)
	}
	p.reporter.Report(err)
}
