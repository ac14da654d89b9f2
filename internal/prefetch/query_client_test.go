package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newQueryClient(t *testing.T) *QueryClient {
	t.Helper()
	c, err := NewQueryClient(DefaultQueryClientConfig())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestQueryClientStaleTime(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	cfg := DefaultQueryClientConfig()
	cfg.Clock = clock.Now
	c, err := NewQueryClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}
	key := KeyOf("transactions", 1)

	v, err := c.Fetch(context.Background(), key, time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(30 * time.Second)
	v, _ = c.Fetch(context.Background(), key, time.Minute, fetch)
	assert.Equal(t, 1, v, "fresh entry is served from cache")

	clock.Advance(time.Minute)
	v, _ = c.Fetch(context.Background(), key, time.Minute, fetch)
	assert.Equal(t, 2, v, "stale entry is refetched")

	v, _ = c.Fetch(context.Background(), key, 0, fetch)
	assert.Equal(t, 3, v, "zero stale time always refetches")
}

func TestQueryClientDoesNotCacheErrors(t *testing.T) {
	c := newQueryClient(t)
	key := KeyOf("analytics")

	_, err := c.Fetch(context.Background(), key, time.Minute, func(context.Context) (any, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)

	_, ok := c.GetQueryData(key)
	assert.False(t, ok)
}

func TestQueryClientSetInvalidate(t *testing.T) {
	c := newQueryClient(t)
	key := KeyOf("products")

	c.SetQueryData(key, []string{"a"})
	v, ok := c.GetQueryData(key)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	c.Invalidate(key)
	_, ok = c.GetQueryData(key)
	assert.False(t, ok)
}

func TestQueryClientDehydrate(t *testing.T) {
	c := newQueryClient(t)
	c.SetQueryData(KeyOf("transactions", 2), "b")
	c.SetQueryData(KeyOf("analytics"), "a")

	state := c.Dehydrate()
	require.Len(t, state.Queries, 2)
	assert.Equal(t, "analytics", state.Queries[0].Hash)
	assert.Equal(t, "a", state.Queries[0].Data)
	assert.Equal(t, KeyOf("transactions", 2), state.Queries[1].Key)
	assert.False(t, state.Queries[1].UpdatedAt.IsZero())

	empty := New(nil).Dehydrate()
	assert.NotNil(t, empty.Queries)
	assert.Empty(t, empty.Queries)
}

func TestQueryClientTypeMismatch(t *testing.T) {
	c := newQueryClient(t)
	key := KeyOf("orders")
	c.SetQueryData(key, "not a number")

	p := New(c)
	res := Prefetch(context.Background(), p, Query[int]{
		Key:       key,
		Fetch:     func(context.Context) (int, error) { return 1, nil },
		StaleTime: time.Minute,
	})
	require.Equal(t, KindError, res.Type())
	assert.Contains(t, res.Err().Error(), "is not int")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "transactions/10", KeyOf("transactions", 10).String())
	assert.Equal(t, "transactions", KeyOf("transactions", 10).Name())
	assert.Equal(t, "", Key(nil).Name())
}
