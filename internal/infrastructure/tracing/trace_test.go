package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/shared/id"
)

func newObservedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New("test", &logging.Logger{Logger: zap.New(core)}), logs
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer, _ := newObservedTracer()
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.True(t, id.IsValid(root.TraceID.String()))
}

func TestInjectExtract(t *testing.T) {
	ctx := WithSpan(context.Background(), "trc_a", "spn_b")

	h := http.Header{}
	Inject(ctx, h)
	traceID, spanID := Extract(h)

	assert.Equal(t, id.TraceID("trc_a"), traceID)
	assert.Equal(t, id.SpanID("spn_b"), spanID)

	empty := http.Header{}
	Inject(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObservedTracer()

	var seen id.TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/api/products", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusServiceUnavailable)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(TraceHeader, "trc_upstream")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	tracer.Close()

	assert.Equal(t, id.TraceID("trc_upstream"), seen)
	assert.Equal(t, "trc_upstream", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))

	entries := logs.FilterMessage("span completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /api/products", fields["operation"])
	assert.Equal(t, "503", fields["http.status"])
}

func TestSubmitAfterClose(t *testing.T) {
	tracer, _ := newObservedTracer()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestSubmitConcurrentWithClose(t *testing.T) {
	tracer, _ := newObservedTracer()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				span, _ := tracer.StartSpan(context.Background(), "racing")
				span.Finish()
				tracer.Submit(span)
			}
		}()
	}
	tracer.Close()
	wg.Wait()

	// A second Close is a no-op.
	tracer.Close()
}
