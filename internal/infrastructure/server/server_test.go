package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
)

func testConfig() *config.Config {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Chaos.FailureRate = 0
	cfg.Chaos.LatencyMinMS = 0
	cfg.Chaos.LatencyMaxMS = 0
	cfg.Chaos.Seed = 1
	return cfg
}

func startMock(t *testing.T, cfg *config.Config) (*MockServer, *httptest.Server) {
	t.Helper()
	mock, err := NewMockServer(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(func() {
		_ = mock.Close()
		srv.Close()
	})
	return mock, srv
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &body), string(raw))
	return resp, body
}

func TestMockServerServesCompressedAPI(t *testing.T) {
	_, srv := startMock(t, testConfig())

	resp, body := getJSON(t, srv.URL+"/api/products")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Uncompressed, "response should have been gzipped")
	assert.Equal(t, float64(5), body["total"])

	resp, body = getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestMockServerWithoutCompression(t *testing.T) {
	cfg := testConfig()
	cfg.Compression.Enabled = false
	_, srv := startMock(t, cfg)

	resp, _ := getJSON(t, srv.URL+"/api/products")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.Uncompressed)
}

func TestMockServerSocketBypassesCompression(t *testing.T) {
	mock, srv := startMock(t, testConfig())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + socketPath
	header := http.Header{"Accept-Encoding": []string{"gzip"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame struct {
		Event string         `json:"event"`
		Data  chaos.Settings `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "settings-updated", frame.Event)
	assert.Equal(t, mock.Store().Snapshot(), frame.Data)
}

func TestMockServerLoadsPresetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[preset]]
name = "lossy"
description = "One in three fails"
[preset.settings]
failureRate = 0.33
`), 0o600))

	cfg := testConfig()
	cfg.Chaos.PresetsFile = path
	_, srv := startMock(t, cfg)

	resp, err := http.Post(srv.URL+"/settings/presets/lossy", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, settings := getJSON(t, srv.URL+"/settings")
	assert.Equal(t, 0.33, settings["failureRate"])
}

func TestNewMockServerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"inverted latency", func(c *config.Config) { c.Chaos.LatencyMinMS, c.Chaos.LatencyMaxMS = 500, 100 }},
		{"failure rate", func(c *config.Config) { c.Chaos.FailureRate = 2 }},
		{"missing presets", func(c *config.Config) { c.Chaos.PresetsFile = filepath.Join(t.TempDir(), "none.toml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)
			_, err := NewMockServer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestGatewayServerEndToEnd(t *testing.T) {
	_, upstream := startMock(t, testConfig())

	cfg := testConfig()
	cfg.Gateway.APIURL = upstream.URL
	cfg.Gateway.PrefetchTimeout = 2 * time.Second
	gw, err := NewGatewayServer(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()
	defer gw.Close()

	resp, body := getJSON(t, srv.URL+"/api/proxy/products")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "closed", body["circuitStatus"])

	resp, body = getJSON(t, srv.URL+"/api/dashboard?quantity=3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["transactions"])
	assert.NotNil(t, body["analytics"])

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	raw, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "gateway_upstream_calls_total")

	assert.Equal(t, resilience.StateClosed, gw.Breakers().Get("products-api").State())
}

func TestGatewayBreakerSettingsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.VolumeThreshold = 4
	cfg.Breaker.ErrorThreshold = 25

	settings := breakerSettings(cfg.Breaker)
	assert.Equal(t, uint32(4), settings.VolumeThreshold)
	assert.Equal(t, 25.0, settings.ErrorThresholdPercentage)
	assert.Equal(t, 3*time.Second, settings.CallTimeout)
	assert.Equal(t, 10, settings.Buckets)
	require.NotNil(t, settings.IsFailure)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	mock, err := NewMockServer(testConfig())
	require.NoError(t, err)
	defer mock.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mock.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}

func TestServeReleasesHangingRequests(t *testing.T) {
	cfg := testConfig()
	cfg.Chaos.Timeout = true
	mock, err := NewMockServer(cfg)
	require.NoError(t, err)
	defer mock.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mock.Serve(ctx, ln) }()

	// Fire enough requests that some hang, then shut down while they wait.
	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/settings")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	statuses := make(chan int, 20)
	for range 20 {
		go func() {
			resp, err := http.Get(base + "/api/orders")
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	time.Sleep(200 * time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	for range 20 {
		status := <-statuses
		assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, status)
	}
}
