package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-billing-api/internal/handler"
	"github.com/noah-isme/edu-billing-api/internal/repository"
	"github.com/noah-isme/edu-billing-api/internal/service"
	"github.com/noah-isme/edu-billing-api/migrations"
	"github.com/noah-isme/edu-billing-api/pkg/cache"
	"github.com/noah-isme/edu-billing-api/pkg/config"
	"github.com/noah-isme/edu-billing-api/pkg/database"
	"github.com/noah-isme/edu-billing-api/pkg/logger"
)

// @title Edu Billing API
// @version 1.0.0
// @description Enrollment billing and lifecycle engine for education centers
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	schema, err := database.LoadMigrations(migrations.FS)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db, schema, logr); err != nil {
		return err
	}

	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, group cache and notifications are disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	app := buildApp(cfg, logr, db, redisClient)
	app.notifications.Start(ctx)
	defer app.notifications.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app holds the wired services and handlers.
type app struct {
	tokens        *service.TokenService
	metrics       *service.MetricsService
	notifications *service.NotificationService
	ownership     *repository.OwnershipRepository

	enrollments *handler.EnrollmentHandler
	freezes     *handler.FreezeHandler
	refunds     *handler.RefundHandler
	groups      *handler.GroupHandler
	health      *handler.HealthHandler
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient redis.UniversalClient) *app {
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	cacheRepo := repository.NewCacheRepository(redisClient)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Billing.GroupCacheTTL, logr, cfg.Billing.GroupCacheEnabled && redisClient != nil)

	notifications := service.NewNotificationService(cacheRepo, service.NotificationConfig{
		Channel:    cfg.Notifications.Channel,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, metrics, logr.Named("notifications"))
	var notifier service.Notifier
	if cfg.Notifications.Enabled && redisClient != nil {
		notifier = notifications
	}

	loc := cfg.Billing.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	groupSvc := service.NewGroupService(repository.NewGroupRepository(db), cacheSvc, logr)

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, groupSvc, paymentRepo, metrics, nil, logr).WithClock(clock)
	freezeSvc := service.NewFreezeService(repository.NewFreezeRepository(db), enrollmentRepo, notifier, metrics, nil, logr).WithClock(clock)
	refundSvc := service.NewRefundService(repository.NewRefundRepository(db), enrollmentRepo, groupSvc, paymentRepo, notifier, metrics, nil, logr).WithClock(clock)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	return &app{
		tokens: service.NewTokenService(service.TokenConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		}),
		metrics:       metrics,
		notifications: notifications,
		ownership:     repository.NewOwnershipRepository(db),
		enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		freezes:       handler.NewFreezeHandler(freezeSvc),
		refunds:       handler.NewRefundHandler(refundSvc),
		groups:        handler.NewGroupHandler(groupSvc),
		health:        handler.NewHealthHandler(metrics, checks, logr),
	}
}
