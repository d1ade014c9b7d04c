package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/auth"
	"rentaudit/internal/models"
)

// ContextKeyPrincipal holds the authenticated models.Principal in Gin context.
const ContextKeyPrincipal = "principal"

// UnauthorizedMessage is returned for both missing and invalid tokens.
const UnauthorizedMessage = "Unauthorized"

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := auth.ValidateJWT(strings.TrimSpace(parts[1]), jwtSecret)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		principal, err := claims.Principal()
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// AdminMiddleware rejects principals without the admin role.
// Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || p.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Response{Error: "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.Response{Error: UnauthorizedMessage})
}
