package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/models"
	appErrors "github.com/noah-isme/edu-billing-api/pkg/errors"
	"github.com/noah-isme/edu-billing-api/pkg/response"
)

// TenantResolver reports which tenant owns a resource.
type TenantResolver interface {
	TenantOf(ctx context.Context, ref models.ResourceRef) (string, error)
}

// ResourceScope rejects requests whose :param resource belongs to another tenant. Foreign
// resources answer 404 so ids from other tenants cannot be probed. SUPERADMIN skips the check.
func ResourceScope(kind models.ResourceKind, param string, resolver TenantResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if claims.Role.CrossTenant() {
			c.Next()
			return
		}

		ref := models.ResourceRef{Kind: kind, ID: c.Param(param)}
		tenant, err := resolver.TenantOf(c.Request.Context(), ref)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
			return
		case err != nil:
			logger.Error("resolve resource tenant", zap.String("kind", string(kind)), zap.String("id", ref.ID), zap.Error(err))
			response.Error(c, err)
			return
		}

		if tenant != claims.TenantID {
			logger.Warn("cross-tenant access denied",
				zap.String("kind", string(kind)),
				zap.String("id", ref.ID),
				zap.String("user_id", claims.UserID),
			)
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
			return
		}
		c.Next()
	}
}
