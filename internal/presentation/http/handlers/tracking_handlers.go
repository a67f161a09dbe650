package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/application/services"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/performance"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// SessionCookie carries the visitor session id attribution is kept under.
const SessionCookie = "ga4e_session"

// TrackingHandlers serves the page bootstrap and the debug log sink.
type TrackingHandlers struct {
	bootstrapService *services.BootstrapService
	debugLogService  *services.DebugLogService
	listLimit        int
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewTrackingHandlers creates tracking handlers with injected dependencies
func NewTrackingHandlers(
	bootstrapService *services.BootstrapService,
	debugLogService *services.DebugLogService,
	listLimit int,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *TrackingHandlers {
	return &TrackingHandlers{
		bootstrapService: bootstrapService,
		debugLogService:  debugLogService,
		listLimit:        listLimit,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// GetBootstrap handles GET /api/v1/tracking/bootstrap - initialization input for one page view
func (h *TrackingHandlers) GetBootstrap(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_bootstrap_request")
	defer marker.Complete()

	pageURL := c.Query("url")
	if pageURL == "" {
		pageURL = c.GetHeader("Referer")
	}

	sessionID, err := c.Cookie(SessionCookie)
	if _, parseErr := ulid.ParseStrict(sessionID); err != nil || parseErr != nil {
		sessionID = security.GenerateULID()
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sessionID, 0, "/", "", c.Request.TLS != nil, true)

	bootstrap := h.bootstrapService.Build(sessionID, pageURL)
	h.logger.Tracking().Debug("Bootstrap served", "events", len(bootstrap.Events), "debug", bootstrap.Debug)

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, bootstrap)
}

// PostEventLog handles POST /api/v1/tracking/log - the debug log sink
func (h *TrackingHandlers) PostEventLog(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_event_log_request")
	defer marker.Complete()

	entry, err := h.debugLogService.Record(services.LogSubmission{
		EventName: c.PostForm("event_name"),
		EventData: c.PostForm("event_data"),
		PageURL:   c.PostForm("page_url"),
		Token:     c.PostForm("token"),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	marker.SetError(err)
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Invalid token"})
		return
	case errors.Is(err, services.ErrDebugDisabled):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Debug mode disabled"})
		return
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Rate limit exceeded"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record event"})
		return
	}

	h.logger.Sink().Debug("Event log request handled", "event", entry.EventName, "duration", time.Since(marker.StartTime))
	c.JSON(http.StatusOK, gin.H{"success": true, "id": entry.ID})
}

// GetEventLog handles GET /api/v1/tracking/log - recorded entries, newest first
func (h *TrackingHandlers) GetEventLog(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_event_log_request")
	defer marker.Complete()

	limit := h.listLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.debugLogService.List(tracking.LogFilter{
		Event: c.Query("event"),
		Field: c.Query("field"),
		Limit: limit,
	})
	if err != nil {
		marker.SetError(err)
		h.logger.Sink().Error("Failed to list event log", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list event log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// DeleteEventLog handles DELETE /api/v1/tracking/log - clears the log
func (h *TrackingHandlers) DeleteEventLog(c *gin.Context) {
	removed, err := h.debugLogService.Clear()
	if err != nil {
		h.logger.Sink().Error("Failed to clear event log", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear event log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}
