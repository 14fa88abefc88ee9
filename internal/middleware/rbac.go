package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-billing-api/internal/models"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

// RequireRoles admits callers holding one of roles. Cross-tenant operators are always admitted.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		switch {
		case claims == nil:
			response.Error(c, appErrors.ErrUnauthorized)
		case claims.Role.CrossTenant() || hasRole(roles, claims.Role):
			c.Next()
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform this action", claims.Role)))
		}
	}
}

func hasRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
