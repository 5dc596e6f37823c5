package middlewares

import (
	"net/http"

	"ctfhub/internal/repositories"
	"ctfhub/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	userContextKey     = "userID"
	usernameContextKey = "username"
)

// AuthMiddleware enforces a valid access token cookie and puts the caller's
// identity into the gin context.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie("access_token")
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(userContextKey, claims.UserID)
		c.Set(usernameContextKey, claims.Username)
		c.Next()
	}
}

// AdminMiddleware requires the authenticated caller to hold the admin flag.
// The flag is re-read from the store on every request so a demotion takes
// effect immediately, not at token expiry.
func AdminMiddleware(userRepo repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUserID returns the authenticated user's ID set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (int, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(int)
	return userID, ok
}

// CurrentUsername returns the authenticated user's name set by AuthMiddleware.
func CurrentUsername(c *gin.Context) string {
	value, exists := c.Get(usernameContextKey)
	if !exists {
		return ""
	}
	username, _ := value.(string)
	return username
}
