package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/resilience-lab/internal/client"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/resilience-lab/internal/prefetch"
)

// Breaker names.
const (
	ProductsCircuit       = "products-api"
	ProductDetailsCircuit = "product-details"
)

const (
	fallbackMessage = "Product information is temporarily unavailable. Please try again later."

	// dashboardStaleTime lets repeated dashboard loads reuse recent data.
	dashboardStaleTime = time.Minute
)

// Gateway serves the consumer routes.
type Gateway struct {
	api      *client.Client
	breakers *resilience.Registry
	queries  *prefetch.Prefetcher
	logger   *logging.Logger
}

// New creates a gateway.
func New(api *client.Client, breakers *resilience.Registry, queries *prefetch.Prefetcher, logger *logging.Logger) *Gateway {
	return &Gateway{
		api:      api,
		breakers: breakers,
		queries:  queries,
		logger:   logger.Component("gateway"),
	}
}

// Register mounts every route on r.
func (g *Gateway) Register(r gin.IRouter) {
	r.GET("/health", g.Health)

	api := r.Group("/api")
	api.GET("/proxy/products", g.Products)
	api.GET("/proxy/products/:id", g.Product)
	api.GET("/proxy/transactions", g.Transactions)
	api.GET("/proxy/analytics", g.Analytics)
	api.GET("/dashboard", g.Dashboard)
	api.GET("/circuits", g.Circuits)
}

// Health reports gateway status and how many circuits are open.
func (g *Gateway) Health(c *gin.Context) {
	open := 0
	for _, s := range g.breakers.Snapshot() {
		if s.State == resilience.StateOpen {
			open++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"upstream":     g.api.BaseURL(),
		"circuits":     g.breakers.Len(),
		"openCircuits": open,
	})
}

// Circuits lists every breaker created so far.
func (g *Gateway) Circuits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"circuits": g.breakers.Snapshot(),
	})
}

// IsUpstreamFailure decides which errors count against a circuit. Client
// errors such as 404 say nothing about upstream health.
func IsUpstreamFailure(err error) bool {
	var se *client.StatusError
	if errors.As(err, &se) {
		return se.Status >= http.StatusInternalServerError
	}
	return true
}
