// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/anticipaterdotcom/ga4-events/internal/application/container"
	"github.com/anticipaterdotcom/ga4-events/internal/presentation/http/handlers"
	"github.com/anticipaterdotcom/ga4-events/internal/presentation/http/middleware"
	"github.com/anticipaterdotcom/ga4-events/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware(config.CORSAllowedOrigins))

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger)
	trackingHandlers := handlers.NewTrackingHandlers(
		container.BootstrapService,
		container.DebugLogService,
		config.EventLogListLimit,
		container.Logger,
		container.PerfTracker,
	)
	streamHandlers := handlers.NewStreamHandlers(
		container.Broadcaster,
		config.CORSAllowedOrigins,
		config.StreamSendBuffer,
		container.Logger,
	)
	systemHandlers := handlers.NewSystemHandlers(container.Definitions, container.PerfTracker, container.Logger)

	adminAuth := middleware.AdminAuth(container.AuthService)

	api := r.Group("/api/v1")
	{
		api.GET("/health", systemHandlers.GetHealth)

		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(container.LoginLimiter), authHandlers.PostLogin)
		}

		trackingAPI := api.Group("/tracking")
		{
			trackingAPI.GET("/bootstrap", trackingHandlers.GetBootstrap)
			trackingAPI.POST("/log", trackingHandlers.PostEventLog)

			// Admin endpoints
			trackingAPI.GET("/log", adminAuth, trackingHandlers.GetEventLog)
			trackingAPI.DELETE("/log", adminAuth, trackingHandlers.DeleteEventLog)
			trackingAPI.GET("/log/stream", adminAuth, streamHandlers.StreamEventLog)
		}

		adminAPI := api.Group("/admin", adminAuth)
		{
			adminAPI.POST("/definitions/reload", systemHandlers.PostReloadDefinitions)
			adminAPI.GET("/metrics", systemHandlers.GetMetrics)
			adminAPI.DELETE("/metrics", systemHandlers.DeleteMetrics)
			adminAPI.GET("/logs/levels", systemHandlers.GetLogLevels)
			adminAPI.POST("/logs/levels", systemHandlers.SetLogLevel)
		}
	}

	return r
}
