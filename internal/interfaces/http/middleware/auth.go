// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID  = "user_id"
	ContextEmail   = "user_email"
	ContextIsAdmin = "is_admin"
)

// TokenValidator checks a bearer token
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, apperror.KindUnauthorized, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, apperror.KindUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := validator.ValidateAccessToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, apperror.KindUnauthorized, "Invalid or expired token")
			return
		}

		// Store user information in context
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// AdminMiddleware ensures the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserIDFromContext(c); !ok {
			abort(c, http.StatusUnauthorized, apperror.KindUnauthorized, "Authentication required")
			return
		}

		if !IsAdminFromContext(c) {
			abort(c, http.StatusForbidden, apperror.KindForbidden, "Admin access required")
			return
		}

		c.Next()
	}
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok && id != 0
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	return c.GetBool(ContextIsAdmin)
}

func abort(c *gin.Context, status int, kind apperror.Kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  kind,
	})
}
