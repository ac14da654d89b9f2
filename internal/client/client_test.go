package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/GriffinCanCode/resilience-lab/internal/api/http"
	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/tracing"
)

// newMockAPI starts a real chaos server with the given settings.
func newMockAPI(t *testing.T, settings chaos.Settings) (*Client, *chaos.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := chaos.NewStore(settings)
	engine := chaos.NewEngine(store, chaos.WithRandom(chaos.NewRandom(7)))
	router := gin.New()
	apihttp.NewHandlers(fixtures.MustLoad(), engine, chaos.BuiltinPresets(), nil, nil,
		logging.NewNop(), chaos.NewRandom(7)).Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(engine.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	return New(cfg), store
}

var calm = chaos.Settings{}

func TestClientResources(t *testing.T) {
	api, _ := newMockAPI(t, calm)
	ctx := context.Background()

	products, err := api.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, products.Total)
	assert.Len(t, products.Products, 5)

	product, err := api.Product(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 3, product.ID)

	user, err := api.UserProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)

	orders, err := api.Orders(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, orders)

	summary, err := api.Transactions(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, summary.DomesticCount+summary.InternationalCount)

	analytics, err := api.Analytics(ctx)
	require.NoError(t, err)
	assert.Len(t, analytics.TopReferrers, 5)
}

func TestClientStatusErrors(t *testing.T) {
	api, store := newMockAPI(t, calm)
	ctx := context.Background()

	_, err := api.Product(ctx, "999")
	require.Error(t, err)
	assert.EqualError(t, err, "API error: 404")
	assert.True(t, IsStatus(err, http.StatusNotFound))

	_, err = store.Update(chaos.Patch{CriticalEndpointFailure: ptr(true)})
	require.NoError(t, err)

	_, err = api.Transactions(ctx, 5)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Contains(t, string(se.Body), "forced endpoint failure")
}

func TestClientSettings(t *testing.T) {
	api, store := newMockAPI(t, chaos.DefaultSettings())
	ctx := context.Background()

	settings, err := api.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, chaos.DefaultSettings(), settings)

	updated, err := api.UpdateSettings(ctx, chaos.Patch{FailureRate: ptr(0.9)})
	require.NoError(t, err)
	assert.Equal(t, 0.9, updated.FailureRate)
	assert.Equal(t, 0.9, store.Snapshot().FailureRate)

	_, err = api.UpdateSettings(ctx, chaos.Patch{FailureRate: ptr(2.0)})
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	preset, err := api.ApplyPreset(ctx, "optional-down")
	require.NoError(t, err)
	assert.True(t, preset.OptionalEndpointFailure)
}

func TestClientHonorsContextOnHang(t *testing.T) {
	api, _ := newMockAPI(t, chaos.Settings{Timeout: true})

	// A hanging server is only hit 30% of the time, so loop until one
	// request is cut off by the deadline.
	var timedOut bool
	for range 40 {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := api.Orders(ctx)
		cancel()
		if err != nil {
			require.ErrorIs(t, err, context.DeadlineExceeded)
			timedOut = true
			break
		}
	}
	assert.True(t, timedOut)
}

func TestClientRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"failureRate":0.5,"latencyMin":1,"latencyMax":2}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryWait = time.Millisecond

	t.Run("no retries by default", func(t *testing.T) {
		calls.Store(0)
		_, err := New(cfg).Settings(context.Background())
		assert.True(t, IsStatus(err, http.StatusInternalServerError))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries until success", func(t *testing.T) {
		calls.Store(0)
		cfg.Retries = 3
		settings, err := New(cfg).Settings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0.5, settings.FailureRate)
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestClientPropagatesTrace(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(tracing.TraceHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL

	tracer := tracing.New("test", logging.NewNop())
	defer tracer.Close()
	span, ctx := tracer.StartSpan(context.Background(), "outer")

	_, err := New(cfg).Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, span.TraceID.String(), got.Load())
}

func TestClientRecordsMetrics(t *testing.T) {
	api, _ := newMockAPI(t, calm)
	metrics := monitoring.NewMetrics("test")
	api.WithMetrics(metrics)

	_, err := api.Products(context.Background())
	require.NoError(t, err)
	_, err = api.Product(context.Background(), "999")
	require.Error(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "test_upstream_calls_total" {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestClientRateLimit(t *testing.T) {
	api, _ := newMockAPI(t, calm)
	api.SetRateLimit(1)

	ctx := context.Background()
	_, err := api.Orders(ctx)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = api.Orders(short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func ptr[T any](v T) *T { return &v }
