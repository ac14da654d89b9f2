package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/api/ws"
	"github.com/GriffinCanCode/resilience-lab/internal/chaos"
)

// GetSettings returns the live chaos settings
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Store().Snapshot())
}

// UpdateSettings merges a partial settings body and broadcasts the result
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var patch chaos.Patch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body: " + err.Error()})
		return
	}

	settings, err := h.engine.Store().Update(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settingsChanged("update", settings)
	c.JSON(http.StatusOK, settings)
}

// ResetSettings restores the start-up settings
func (h *Handlers) ResetSettings(c *gin.Context) {
	settings := h.engine.Store().Reset()
	h.settingsChanged("reset", settings)
	c.JSON(http.StatusOK, settings)
}

// ListPresets lists the named chaos profiles
func (h *Handlers) ListPresets(c *gin.Context) {
	presets := h.presets.List()
	c.JSON(http.StatusOK, gin.H{
		"presets": presets,
		"count":   len(presets),
	})
}

// ApplyPreset switches to a named chaos profile
func (h *Handlers) ApplyPreset(c *gin.Context) {
	name := c.Param("name")

	preset, err := h.presets.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.engine.Store().Apply(preset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settingsChanged("preset:"+preset.Name, settings)
	c.JSON(http.StatusOK, gin.H{
		"preset":   preset.Name,
		"settings": settings,
	})
}

func (h *Handlers) settingsChanged(source string, settings chaos.Settings) {
	h.logger.Info("Chaos settings changed",
		zap.String("source", source),
		zap.Float64("failure_rate", settings.FailureRate),
		zap.Int("latency_min", settings.LatencyMin),
		zap.Int("latency_max", settings.LatencyMax),
		zap.Bool("timeout", settings.Timeout),
		zap.Bool("malformed", settings.MalformedData),
	)
	if h.metrics != nil {
		h.metrics.IncSettingsUpdates()
	}
}

// BroadcastSettings returns a chaos.Broadcaster that pushes every change to
// the hub's observers.
func BroadcastSettings(hub *ws.Hub) chaos.Broadcaster {
	return chaos.BroadcastFunc(func(s chaos.Settings) {
		hub.Publish(SettingsEvent, s)
	})
}

// SettingsGreeting returns the frame sent to each new observer.
func SettingsGreeting(store *chaos.Store) func() ws.Frame {
	return func() ws.Frame {
		return ws.Frame{Event: SettingsEvent, Data: store.Snapshot()}
	}
}
