package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/identity"
	"chat-sync/internal/models"
)

// AuthMiddleware validates the Authorization header against the auth service
// and stores the resolved profile on the request context.
func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		profile, err := provider.CurrentUser(c.Request.Context(), parts[1])
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, identity.ErrUnauthorized) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "invalid token"})
			return
		}

		c.Set("profile", profile)
		c.Set("userID", profile.UserID)
		c.Next()
	}
}

// ProfileFromContext returns the profile stored by AuthMiddleware.
func ProfileFromContext(c *gin.Context) (models.UserProfile, bool) {
	value, ok := c.Get("profile")
	if !ok {
		return models.UserProfile{}, false
	}
	profile, ok := value.(models.UserProfile)
	return profile, ok
}
