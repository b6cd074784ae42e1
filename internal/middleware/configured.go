package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConfiguredMiddleware rejects requests with 403 while the connector lacks
// credentials or an identifier mapping.
func ConfiguredMiddleware(isConfigured func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isConfigured() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "connector is not configured"})
			return
		}
		c.Next()
	}
}
