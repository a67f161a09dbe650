// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/application/services"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// PostLogin handles POST /api/v1/auth/login - admin authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	h.logger.Auth().Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var request struct {
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.AuthenticateAdmin(request.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		h.logger.Auth().Info("Login failed", "ip", c.ClientIP(), "duration", time.Since(start))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Auth().Error("Login error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}

	h.logger.Auth().Info("Login successful", "ip", c.ClientIP(), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     result.Token,
		"role":      result.Role,
		"expiresAt": result.ExpiresAt,
	})
}
