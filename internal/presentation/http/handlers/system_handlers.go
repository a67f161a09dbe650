package handlers

import (
	"fmt"
	"net/http"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/definitions"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// SystemHandlers exposes health, log level and definition reload endpoints.
type SystemHandlers struct {
	definitions *definitions.Store
	perfTracker *performance.Tracker
	logger      *logging.ChanneledLogger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(defs *definitions.Store, perfTracker *performance.Tracker, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{definitions: defs, perfTracker: perfTracker, logger: logger}
}

// GetHealth handles GET /api/v1/health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	settings := h.definitions.Settings()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"enabled":   bool(settings.Enabled),
		"debugMode": bool(settings.DebugMode),
		"events":    len(settings.Events),
	})
}

// GetMetrics handles GET /api/v1/admin/metrics - request timings per operation
func (h *SystemHandlers) GetMetrics(c *gin.Context) {
	snap := h.perfTracker.Snapshot()
	operations := make(gin.H, len(snap.Operations))
	for name, stats := range snap.Operations {
		operations[name] = gin.H{
			"count":     stats.Count,
			"failures":  stats.Failures,
			"slow":      stats.SlowCount,
			"avgMs":     stats.AverageDuration().Milliseconds(),
			"maxMs":     stats.MaxDuration.Milliseconds(),
			"lastError": stats.LastError,
		}
	}
	c.JSON(http.StatusOK, gin.H{"uptimeSeconds": int64(snap.Uptime.Seconds()), "operations": operations})
}

// DeleteMetrics handles DELETE /api/v1/admin/metrics
func (h *SystemHandlers) DeleteMetrics(c *gin.Context) {
	h.perfTracker.Reset()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostReloadDefinitions handles POST /api/v1/admin/definitions/reload
func (h *SystemHandlers) PostReloadDefinitions(c *gin.Context) {
	if err := h.definitions.Reload(); err != nil {
		h.logger.Tracking().Error("Definition reload failed", "error", err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to reload definitions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "events": len(h.definitions.Settings().Events)})
}

// GetLogLevels handles GET /api/v1/admin/logs/levels - returns current log levels for all channels.
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}

// SetLogLevel handles POST /api/v1/admin/logs/levels - sets the log level for a specific channel.
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	switch req.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), logging.ParseLevel(req.Level)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}
