package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/client"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/resilience"
)

// fallbackBody is served whenever a product circuit cannot answer.
type fallbackBody struct {
	Products        []fixtures.Product `json:"products,omitzero"`
	Message         string             `json:"message"`
	CircuitStatus   resilience.State   `json:"circuitStatus"`
	IsUsingFallback bool               `json:"isUsingFallback"`
}

type productsBody struct {
	fixtures.ProductList
	CircuitStatus resilience.State `json:"circuitStatus"`
}

type productBody struct {
	fixtures.Product
	CircuitStatus resilience.State `json:"circuitStatus"`
}

// reply is what a guarded call hands back to the handler: either the
// upstream data or the fallback body.
type reply struct {
	status int
	body   any
}

// Products lists products behind the products-api circuit.
func (g *Gateway) Products(c *gin.Context) {
	breaker := g.breakers.Get(ProductsCircuit)

	out, err := resilience.CallWithFallback(c.Request.Context(), breaker,
		func(ctx context.Context) (reply, error) {
			list, err := g.api.Products(ctx)
			if err != nil {
				return reply{}, err
			}
			return reply{status: http.StatusOK, body: &productsBody{ProductList: list}}, nil
		},
		g.fallback(breaker, []fixtures.Product{}),
	)
	if err != nil {
		g.abort(c, err)
		return
	}

	if body, ok := out.body.(*productsBody); ok {
		body.CircuitStatus = breaker.State()
	}
	c.JSON(out.status, out.body)
}

// Product fetches one product behind its own product-details-<id> circuit,
// so one broken product cannot open the circuit for the others. Ids must be
// positive integers; anything else is rejected before a circuit exists for it.
func (g *Gateway) Product(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("id"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id must be a positive integer"})
		return
	}
	id := strconv.Itoa(n)
	breaker := g.breakers.Get(resilience.Key(ProductDetailsCircuit, id))

	out, err := resilience.CallWithFallback(c.Request.Context(), breaker,
		func(ctx context.Context) (reply, error) {
			product, err := g.api.Product(ctx, id)
			if err != nil {
				return reply{}, err
			}
			return reply{status: http.StatusOK, body: &productBody{Product: product}}, nil
		},
		g.fallback(breaker, nil),
	)
	switch {
	case err == nil:
	case client.IsStatus(err, http.StatusNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	default:
		g.abort(c, err)
		return
	}

	if body, ok := out.body.(*productBody); ok {
		body.CircuitStatus = breaker.State()
	}
	c.JSON(out.status, out.body)
}

// fallback builds the degraded answer served while a circuit cannot help.
func (g *Gateway) fallback(breaker *resilience.Breaker, products []fixtures.Product) func(context.Context, error) (reply, error) {
	return func(_ context.Context, err error) (reply, error) {
		if resilience.IsShortCircuit(err) {
			g.logger.Debug("Circuit short-circuited request", zap.String("circuit", breaker.Name()))
		} else {
			g.logger.Warn("Upstream call failed, serving fallback",
				zap.String("circuit", breaker.Name()),
				zap.Error(err))
		}
		return reply{
			status: http.StatusServiceUnavailable,
			body: fallbackBody{
				Products:        products,
				Message:         fallbackMessage,
				CircuitStatus:   resilience.StateOpen,
				IsUsingFallback: true,
			},
		}, nil
	}
}

// abort handles errors that reach the handler without a fallback: the
// caller went away, or the upstream rejected the request itself.
func (g *Gateway) abort(c *gin.Context, err error) {
	if c.Request.Context().Err() != nil {
		c.AbortWithStatus(499)
		return
	}
	g.logger.Warn("Upstream rejected request", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
