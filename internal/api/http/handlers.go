package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/resilience-lab/internal/api/ws"
	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
	"github.com/GriffinCanCode/resilience-lab/internal/fixtures"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/monitoring"
)

// SettingsEvent is the websocket event carrying chaos settings.
const SettingsEvent = "settings-updated"

// Handlers contains all chaos server handlers
type Handlers struct {
	catalog *fixtures.Catalog
	engine  *chaos.Engine
	presets chaos.Presets
	hub     *ws.Hub
	metrics *monitoring.Metrics
	logger  *logging.Logger
	rng     chaos.Random
}

// NewHandlers creates a new handler set. metrics and hub may be nil.
func NewHandlers(
	catalog *fixtures.Catalog,
	engine *chaos.Engine,
	presets chaos.Presets,
	hub *ws.Hub,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
	rng chaos.Random,
) *Handlers {
	return &Handlers{
		catalog: catalog,
		engine:  engine,
		presets: presets,
		hub:     hub,
		metrics: metrics,
		logger:  logger.Component("api"),
		rng:     rng,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Chaos control
	r.GET("/settings", h.GetSettings)
	r.POST("/settings", h.UpdateSettings)
	r.POST("/settings/reset", h.ResetSettings)
	r.GET("/settings/presets", h.ListPresets)
	r.POST("/settings/presets/:name", h.ApplyPreset)

	// Resources
	api := r.Group("/api")
	api.GET("/products", h.Products)
	api.GET("/products/:id", h.Product)
	api.GET("/users/profile", h.UserProfile)
	api.GET("/orders", h.Orders)
	api.GET("/transactions", h.Transactions)
	api.GET("/analytics", h.Analytics)

	if h.hub != nil {
		r.GET("/socket", h.hub.HandleConnection)
	}
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Root describes the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Chaos Mock API",
		"endpoints": []string{
			"GET /api/products",
			"GET /api/products/:id",
			"GET /api/users/profile",
			"GET /api/orders",
			"GET /api/transactions?quantity=N",
			"GET /api/analytics",
			"GET /settings",
			"POST /settings",
		},
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	observers := 0
	if h.hub != nil {
		observers = h.hub.Len()
	}
	body := gin.H{
		"status":    "healthy",
		"settings":  h.engine.Store().Snapshot(),
		"observers": observers,
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}
