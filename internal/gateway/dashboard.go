package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/prefetch"
)

const defaultQuantity = 10

// Transactions proxies the transactions summary.
func (g *Gateway) Transactions(c *gin.Context) {
	quantity, ok := quantityParam(c)
	if !ok {
		return
	}

	summary, err := g.api.Transactions(c.Request.Context(), quantity)
	if err != nil {
		g.logger.Warn("Transactions request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Success", "data": summary})
}

// Analytics proxies the analytics snapshot.
func (g *Gateway) Analytics(c *gin.Context) {
	analytics, err := g.api.Analytics(c.Request.Context())
	if err != nil {
		g.logger.Warn("Analytics request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch analytics data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Success", "data": analytics})
}

type dashboardBody struct {
	Transactions    fixtures.TransactionSummary `json:"transactions"`
	Analytics       *fixtures.Analytics         `json:"analytics"`
	DehydratedState prefetch.DehydratedState    `json:"dehydratedState"`
}

// Dashboard loads the page data. Transactions are critical: without them the
// page answers 500. Analytics are optional: without them the page renders
// with "analytics": null.
func (g *Gateway) Dashboard(c *gin.Context) {
	quantity, ok := quantityParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		body      dashboardBody
		group     errgroup.Group
		analytics fixtures.Analytics
		hasData   bool
	)
	group.Go(func() error {
		var err error
		body.Transactions, err = prefetch.CriticalQuery(ctx, g.queries, prefetch.Query[fixtures.TransactionSummary]{
			Key:       prefetch.KeyOf("transactions", quantity),
			Fetch:     func(ctx context.Context) (fixtures.TransactionSummary, error) { return g.api.Transactions(ctx, quantity) },
			StaleTime: dashboardStaleTime,
			Tag:       "Transactions",
		})
		return err
	})
	group.Go(func() error {
		analytics, hasData = prefetch.OptionalQuery(ctx, g.queries, prefetch.Query[fixtures.Analytics]{
			Key:       prefetch.KeyOf("analytics"),
			Fetch:     g.api.Analytics,
			StaleTime: dashboardStaleTime,
			Tag:       "Analytics",
		})
		return nil
	})

	if err := group.Wait(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load dashboard",
			"message": err.Error(),
		})
		return
	}

	if hasData {
		body.Analytics = &analytics
	}
	body.DehydratedState = g.queries.Dehydrate()
	c.JSON(http.StatusOK, body)
}

// quantityParam reads ?quantity=N, answering 400 itself when it is invalid.
func quantityParam(c *gin.Context) (int, bool) {
	raw := c.Query("quantity")
	if raw == "" {
		return defaultQuantity, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return 0, false
	}
	return n, true
}
