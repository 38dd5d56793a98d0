package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

const (
	// userIDHeader carries the authenticated caller's ID. Authentication
	// itself happens upstream (API gateway); this service only resolves
	// the identity it is handed.
	userIDHeader = "X-User-ID"

	callerContextKey = "caller"
)

// IdentityMiddleware resolves the caller from the X-User-ID header and
// stores the user in the request context. Requests without a resolvable
// identity are rejected before reaching any handler.
func IdentityMiddleware(userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + userIDHeader + " header"})
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity lookup failed"})
			return
		}

		c.Set(callerContextKey, user)
		c.Next()
	}
}

// CallerFrom returns the resolved caller stored by IdentityMiddleware.
func CallerFrom(c *gin.Context) (*domain.User, bool) {
	value, ok := c.Get(callerContextKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}
