package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edu-billing-api/api/swagger"
	"github.com/noah-isme/edu-billing-api/internal/middleware"
	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/pkg/config"
	"github.com/noah-isme/edu-billing-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-billing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-billing-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.health.Health)
	r.GET("/ready", a.health.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, a.health.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleTeacher)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRoles(models.RoleAdmin)
	scope := func(kind models.ResourceKind) gin.HandlerFunc {
		return middleware.ResourceScope(kind, "id", a.ownership, logr)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens))

	enrollments := api.Group("/enrollments/:id", scope(models.ResourceEnrollment))
	enrollments.GET("/activation-preview", readers, a.enrollments.ActivationPreview)
	enrollments.POST("/activate", managers, a.enrollments.Activate)
	enrollments.POST("/discount", managers, a.enrollments.AssignDiscount)
	enrollments.GET("/prepayment-quote", readers, a.enrollments.PrepaymentQuote)
	enrollments.GET("/payments", readers, a.enrollments.ListPayments)
	enrollments.GET("/payments/export", readers, a.enrollments.ExportPayments)
	enrollments.POST("/freezes", managers, a.freezes.Create)
	enrollments.GET("/freezes", readers, a.freezes.List)
	enrollments.POST("/refunds", managers, a.refunds.Create)
	enrollments.GET("/refund-preview", readers, a.refunds.Preview)

	freezes := api.Group("/freezes/:id", scope(models.ResourceFreeze))
	freezes.GET("", readers, a.freezes.Get)
	freezes.POST("/end", managers, a.freezes.End)
	freezes.POST("/cancel", managers, a.freezes.Cancel)

	refunds := api.Group("/refunds/:id", scope(models.ResourceRefund))
	refunds.GET("", readers, a.refunds.Get)
	refunds.POST("/process", admins, a.refunds.Process)
	refunds.GET("/statement", readers, a.refunds.Statement)

	groups := api.Group("/groups/:id", scope(models.ResourceGroup))
	groups.GET("", readers, a.groups.Get)
	groups.DELETE("/cache", admins, a.groups.InvalidateCache)

	return r
}
