package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenValidator checks an admin bearer token.
type TokenValidator interface {
	ValidateAdminToken(token string) error
}

// BearerToken returns the token from the Authorization header, falling back
// to the token query parameter browsers use for websocket upgrades.
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return c.Query("token")
}

// AdminAuth protects admin endpoints.
func AdminAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validator.ValidateAdminToken(BearerToken(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
