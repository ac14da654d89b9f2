package prefetch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
)

// QueryClientConfig sizes the query cache.
type QueryClientConfig struct {
	// MaximumSize bounds the number of cached queries.
	MaximumSize int
	// GCTime drops entries this long after they were written.
	GCTime time.Duration
	Logger *logging.Logger
	// Clock is used for staleness checks. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultQueryClientConfig returns the default cache settings.
func DefaultQueryClientConfig() QueryClientConfig {
	return QueryClientConfig{
		MaximumSize: 1000,
		GCTime:      5 * time.Minute,
	}
}

type entry struct {
	key       Key
	data      any
	updatedAt time.Time
}

// QueryClient caches query results by key and collapses concurrent fetches
// of the same key into one.
type QueryClient struct {
	cache    *otter.Cache[string, entry]
	counter  *stats.Counter
	inflight singleflight.Group
	logger   *logging.Logger
	now      func() time.Time
}

// NewQueryClient creates a query client.
func NewQueryClient(cfg QueryClientConfig) (*QueryClient, error) {
	if cfg.MaximumSize <= 0 {
		cfg.MaximumSize = DefaultQueryClientConfig().MaximumSize
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = DefaultQueryClientConfig().GCTime
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	counter := stats.NewCounter()
	cache, err := otter.New(&otter.Options[string, entry]{
		MaximumSize:      cfg.MaximumSize,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](cfg.GCTime),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build query cache: %w", err)
	}

	return &QueryClient{
		cache:   cache,
		counter: counter,
		logger:  cfg.Logger.Component("queries"),
		now:     cfg.Clock,
	}, nil
}

// Fetch returns the cached value for key when it is younger than staleTime,
// otherwise runs fn, caches a successful result and returns it. Concurrent
// callers for the same key share one run of fn.
func (c *QueryClient) Fetch(ctx context.Context, key Key, staleTime time.Duration, fn func(context.Context) (any, error)) (any, error) {
	hash := key.String()
	if e, ok := c.cache.GetIfPresent(hash); ok && c.now().Sub(e.updatedAt) < staleTime {
		return e.data, nil
	}

	v, err, shared := c.inflight.Do(hash, func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(hash, entry{key: key, data: data, updatedAt: c.now()})
		return data, nil
	})
	if shared {
		c.logger.Debug("Joined in-flight query", zap.String("key", hash))
	}
	return v, err
}

// GetQueryData returns the cached value for key regardless of age.
func (c *QueryClient) GetQueryData(key Key) (any, bool) {
	e, ok := c.cache.GetIfPresent(key.String())
	if !ok {
		return nil, false
	}
	return e.data, true
}

// SetQueryData stores data for key as if it had just been fetched.
func (c *QueryClient) SetQueryData(key Key, data any) {
	c.cache.Set(key.String(), entry{key: key, data: data, updatedAt: c.now()})
}

// Invalidate drops the cached value for key.
func (c *QueryClient) Invalidate(key Key) {
	c.cache.Invalidate(key.String())
}

// DehydratedQuery is one cached query in a Dehydrate snapshot.
type DehydratedQuery struct {
	Key       Key       `json:"queryKey"`
	Hash      string    `json:"queryHash"`
	Data      any       `json:"data"`
	UpdatedAt time.Time `json:"dataUpdatedAt"`
}

// DehydratedState is a serializable snapshot of the cache.
type DehydratedState struct {
	Queries []DehydratedQuery `json:"queries"`
}

// Dehydrate snapshots every cached query, ordered by key.
func (c *QueryClient) Dehydrate() DehydratedState {
	state := DehydratedState{Queries: []DehydratedQuery{}}
	for hash, e := range c.cache.All() {
		state.Queries = append(state.Queries, DehydratedQuery{
			Key:       e.key,
			Hash:      hash,
			Data:      e.data,
			UpdatedAt: e.updatedAt,
		})
	}
	sort.Slice(state.Queries, func(i, j int) bool {
		return state.Queries[i].Hash < state.Queries[j].Hash
	})
	return state
}

// Stats returns cache hit and miss counts.
func (c *QueryClient) Stats() stats.Stats {
	return c.counter.Snapshot()
}

// Len returns the number of cached queries.
func (c *QueryClient) Len() int {
	return c.cache.EstimatedSize()
}

// Close stops the cache's background goroutines.
func (c *QueryClient) Close() {
	c.cache.StopAllGoroutines()
}
