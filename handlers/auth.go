package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key holding the resolved user identity.
const userIDKey = "userID"

// RequireUser extracts the authenticated identity placed in the X-User-ID
// header by the identity collaborator in front of this service. Requests
// without an identity are rejected before any core logic runs.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUser returns the identity set by RequireUser, or "" when the route
// is not identity-gated.
func CurrentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequireAdmin gates question management behind the X-Admin-Key header
// checked against the ADMIN_KEY environment variable.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminKey := os.Getenv("ADMIN_KEY")
		if adminKey == "" || c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin key"})
			return
		}
		c.Next()
	}
}
