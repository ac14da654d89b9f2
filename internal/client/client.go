package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/tracing"
)

// StatusError is returned for every non-2xx answer.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Status)
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Config defines client behavior.
type Config struct {
	// BaseURL is the chaos server root, without the /api prefix.
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
	UserAgent string
}

// DefaultConfig returns the configuration for a local mock API.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:3001",
		Timeout:   30 * time.Second,
		Retries:   0,
		RetryWait: 100 * time.Millisecond,
		UserAgent: "resilience-lab/1.0",
	}
}

// Client calls the mock API.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	metrics *monitoring.Metrics
	logger  *logging.Logger
	mu      sync.RWMutex
}

// New creates a client for cfg.
func New(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWait
	retryClient.RetryWaitMax = 10 * cfg.RetryWait
	retryClient.Logger = nil
	// Hand the last response back instead of a "giving up" error so the
	// status survives.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	c := &Client{
		resty:   restyClient,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logging.NewNop(),
	}
	c.SetRateLimit(cfg.RateLimit)
	return c
}

// WithMetrics records every call as an upstream call.
func (c *Client) WithMetrics(metrics *monitoring.Metrics) *Client {
	c.metrics = metrics
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *logging.Logger) *Client {
	c.logger = logger.Component("client")
	return c
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.resty.BaseURL
}

// Products lists the first page of products.
func (c *Client) Products(ctx context.Context) (fixtures.ProductList, error) {
	var out fixtures.ProductList
	return out, c.do(ctx, "products", http.MethodGet, "/api/products", nil, nil, &out)
}

// Product fetches one product.
func (c *Client) Product(ctx context.Context, id string) (fixtures.Product, error) {
	var out fixtures.Product
	return out, c.do(ctx, "product", http.MethodGet, "/api/products/{id}", map[string]string{"id": id}, nil, &out)
}

// UserProfile fetches the signed-in user.
func (c *Client) UserProfile(ctx context.Context) (fixtures.User, error) {
	var out fixtures.User
	return out, c.do(ctx, "profile", http.MethodGet, "/api/users/profile", nil, nil, &out)
}

// Orders lists every order.
func (c *Client) Orders(ctx context.Context) ([]fixtures.Order, error) {
	var out []fixtures.Order
	return out, c.do(ctx, "orders", http.MethodGet, "/api/orders", nil, nil, &out)
}

// Transactions fetches the summary of quantity transactions.
func (c *Client) Transactions(ctx context.Context, quantity int) (fixtures.TransactionSummary, error) {
	var out fixtures.TransactionSummary
	req := func(r *resty.Request) {
		r.SetQueryParam("quantity", strconv.Itoa(quantity))
	}
	return out, c.doWith(ctx, "transactions", http.MethodGet, "/api/transactions", req, &out)
}

// Analytics fetches the analytics snapshot.
func (c *Client) Analytics(ctx context.Context) (fixtures.Analytics, error) {
	var out fixtures.Analytics
	return out, c.do(ctx, "analytics", http.MethodGet, "/api/analytics", nil, nil, &out)
}

// Settings fetches the live chaos settings.
func (c *Client) Settings(ctx context.Context) (chaos.Settings, error) {
	var out chaos.Settings
	return out, c.do(ctx, "settings", http.MethodGet, "/settings", nil, nil, &out)
}

// UpdateSettings merges patch into the live chaos settings.
func (c *Client) UpdateSettings(ctx context.Context, patch chaos.Patch) (chaos.Settings, error) {
	var out chaos.Settings
	return out, c.do(ctx, "settings", http.MethodPost, "/settings", nil, patch, &out)
}

// ApplyPreset switches the server to a named chaos preset.
func (c *Client) ApplyPreset(ctx context.Context, name string) (chaos.Settings, error) {
	var out struct {
		Settings chaos.Settings `json:"settings"`
	}
	err := c.do(ctx, "settings", http.MethodPost, "/settings/presets/{name}", map[string]string{"name": name}, nil, &out)
	return out.Settings, err
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, params map[string]string, body, out any) error {
	return c.doWith(ctx, endpoint, method, path, func(r *resty.Request) {
		if params != nil {
			r.SetPathParams(params)
		}
		if body != nil {
			r.SetHeader("Content-Type", "application/json").SetBody(body)
		}
	}, out)
}

func (c *Client) doWith(ctx context.Context, endpoint, method, path string, build func(*resty.Request), out any) error {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	timer := monitoring.NewTimer(c.metrics, endpoint)
	req := c.resty.R().SetContext(ctx).SetResult(out)
	tracing.Inject(ctx, req.Header)
	build(req)

	resp, err := req.Execute(method, path)
	if err != nil {
		timer.Stop("error")
		c.logger.Debug("Upstream call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	timer.Stop(strconv.Itoa(resp.StatusCode()))
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		c.logger.Debug("Upstream answered with error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode()))
		return &StatusError{Status: resp.StatusCode(), Body: resp.Body()}
	}
	return nil
}
