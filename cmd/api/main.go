package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/estate-admin-api/api/swagger"
	"github.com/noah-isme/estate-admin-api/internal/handler"
	"github.com/noah-isme/estate-admin-api/internal/middleware"
	"github.com/noah-isme/estate-admin-api/internal/models"
	"github.com/noah-isme/estate-admin-api/internal/repository"
	"github.com/noah-isme/estate-admin-api/internal/service"
	"github.com/noah-isme/estate-admin-api/pkg/cache"
	"github.com/noah-isme/estate-admin-api/pkg/config"
	"github.com/noah-isme/estate-admin-api/pkg/database"
	"github.com/noah-isme/estate-admin-api/pkg/jobs"
	"github.com/noah-isme/estate-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/estate-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/estate-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/estate-admin-api/pkg/storage"
)

// @title Estate Admin API
// @version 1.0.0
// @description Approval-workflow backed admin console API for real-estate records
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
			redisClient = nil
		}
	}

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}

	recordRepo := repository.NewRecordRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "estate-admin-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)

	recordService := service.NewRecordService(recordRepo, approvalRepo, cacheRepo, userRepo, metricsService, logr, cfg.Cache.ListTTL)
	approvalService := service.NewApprovalService(approvalRepo, recordRepo, recordService, userRepo, metricsService, logr)
	importService := service.NewImportService(recordRepo, recordService, userRepo, logr, cfg.Imports.MaxRows)

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	var exportService *service.ExportService
	exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return exportService.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportService = service.NewExportService(recordService, exportJobRepo, exportQueue, fileStore, signer, userRepo, metricsService, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	}, logr)

	exportQueue.Start(ctx)
	defer exportQueue.Stop()
	exportService.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	recordHandler := handler.NewRecordHandler(recordService, importService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	// No session required, access is gated by the signed token.
	api.GET("/exports/download/:token", exportHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		protected.GET("/dashboard", recordHandler.Dashboard)

		modules := protected.Group("/modules/:module")
		{
			modules.GET("/records", recordHandler.List)
			modules.GET("/records/:id", recordHandler.Get)
			modules.POST("/records", recordHandler.Create)
			modules.PUT("/records/:id", recordHandler.Update)
			modules.DELETE("/records/:id", recordHandler.Delete)
			modules.GET("/export", exportHandler.ExportSync)
			modules.POST("/export-jobs", exportHandler.CreateJob)
			modules.POST("/import", middleware.RequireRoles(models.RoleAdmin), recordHandler.Import)
		}

		approvals := protected.Group("/approvals")
		{
			approvals.GET("", approvalHandler.List)
			approvals.GET("/:id", approvalHandler.Get)
			approvals.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin), approvalHandler.Approve)
			approvals.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin), approvalHandler.Reject)
		}

		exports := protected.Group("/exports")
		{
			exports.GET("", exportHandler.ListJobs)
			exports.GET("/:id", exportHandler.GetJob)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.GET("/users/:id", userHandler.Get)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Deactivate)
			admin.GET("/audit", userHandler.AuditTrail)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
