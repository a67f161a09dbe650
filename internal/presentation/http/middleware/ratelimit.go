package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Limiter admits or rejects a request from a client address.
type Limiter interface {
	Allow(ip string) bool
}

// RateLimit rejects requests once the client address runs out of budget.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
