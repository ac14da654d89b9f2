package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
)

const (
	productPageSize = 12

	defaultQuantity = 10
	maxQuantity     = 1000

	// statusClientClosed is logged when the caller hangs up first.
	statusClientClosed = 499
)

var (
	productsEndpoint     = chaos.Endpoint{Name: "products"}
	productEndpoint      = chaos.Endpoint{Name: "product"}
	profileEndpoint      = chaos.Endpoint{Name: "profile"}
	ordersEndpoint       = chaos.Endpoint{Name: "orders"}
	transactionsEndpoint = chaos.Endpoint{Name: "transactions", Force: chaos.ForceCritical}
	analyticsEndpoint    = chaos.Endpoint{Name: "analytics", Force: chaos.ForceOptional}
)

// Products lists the first page of products
func (h *Handlers) Products(c *gin.Context) {
	h.serve(c, productsEndpoint, func() (any, error) {
		return h.catalog.Products(productPageSize), nil
	})
}

// Product returns one product by id
func (h *Handlers) Product(c *gin.Context) {
	id := c.Param("id")
	h.serve(c, productEndpoint, func() (any, error) {
		return h.catalog.Product(id)
	})
}

// UserProfile returns the signed-in user
func (h *Handlers) UserProfile(c *gin.Context) {
	h.serve(c, profileEndpoint, func() (any, error) {
		return h.catalog.Profile(), nil
	})
}

// Orders lists every order
func (h *Handlers) Orders(c *gin.Context) {
	h.serve(c, ordersEndpoint, func() (any, error) {
		return h.catalog.Orders(), nil
	})
}

// Transactions aggregates quantity synthetic transactions. It fails on every
// request while criticalEndpointFailure is set, whatever the quantity.
func (h *Handlers) Transactions(c *gin.Context) {
	raw := c.Query("quantity")
	h.serve(c, transactionsEndpoint, func() (any, error) {
		quantity, err := parseQuantity(raw)
		if err != nil {
			return nil, err
		}
		return fixtures.Summarize(fixtures.GenerateTransactions(quantity, h.rng)), nil
	})
}

// Analytics returns a traffic snapshot. It fails on every request while
// optionalEndpointFailure is set.
func (h *Handlers) Analytics(c *gin.Context) {
	h.serve(c, analyticsEndpoint, func() (any, error) {
		return fixtures.SampleAnalytics(h.rng), nil
	})
}

// serve runs produce through the chaos engine and writes whatever comes out.
func (h *Handlers) serve(c *gin.Context, endpoint chaos.Endpoint, produce chaos.Producer) {
	resp, err := h.engine.Process(c.Request.Context(), endpoint, produce)
	switch {
	case err == nil:
		c.Data(resp.Status, "application/json; charset=utf-8", resp.Body)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatus(statusClientClosed)
	case errors.Is(err, chaos.ErrClosed):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Server shutting down"})
	case errors.Is(err, fixtures.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, errInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to produce response",
			zap.String("endpoint", endpoint.Name),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

var errInvalidQuantity = errors.New("quantity must be an integer between 1 and " + strconv.Itoa(maxQuantity))

func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return defaultQuantity, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxQuantity {
		return 0, errInvalidQuantity
	}
	return n, nil
}
