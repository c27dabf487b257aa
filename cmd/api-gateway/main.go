package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/harmonia-studio/harmonia-api/api/swagger"
	"github.com/harmonia-studio/harmonia-api/internal/grantstore"
	"github.com/harmonia-studio/harmonia-api/internal/handler"
	"github.com/harmonia-studio/harmonia-api/internal/middleware"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/internal/repository"
	"github.com/harmonia-studio/harmonia-api/internal/service"
	"github.com/harmonia-studio/harmonia-api/pkg/cache"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	"github.com/harmonia-studio/harmonia-api/pkg/database"
	"github.com/harmonia-studio/harmonia-api/pkg/logger"
	corsmiddleware "github.com/harmonia-studio/harmonia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harmonia-studio/harmonia-api/pkg/middleware/requestid"
	"github.com/harmonia-studio/harmonia-api/pkg/storage"
)

// @title Harmonia Studio API
// @version 1.0.0
// @description Custom music commissioning: briefings, client preview and back office
// @BasePath /api/v1
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to in-memory grants and no preview cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories.
	projectRepo := repository.NewProjectRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	accessLogRepo := repository.NewAccessLogRepository(db)
	briefingRepo := repository.NewBriefingRepository(db)
	clientRepo := repository.NewClientRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	userRepo := repository.NewUserRepository(db)
	deliveryRepo := repository.NewWebhookDeliveryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var grants grantstore.Store
	if redisClient != nil {
		grants = grantstore.NewRedisStore(redisClient)
	} else {
		grants = grantstore.NewMemoryStore()
	}

	// Storage backends.
	mediaStore, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare media storage", zap.Error(err))
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	mediaSigner := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	// Services.
	metricsSvc := service.NewMetricsService()

	settingsSvc := service.NewSettingsService(settingRepo, userRepo, nil, logr, service.SettingsServiceConfig{})

	webhookSvc := service.NewWebhookService(deliveryRepo, settingsSvc, logr, cfg.Webhooks)
	webhookSvc.SetMetrics(metricsSvc)
	webhookSvc.Start(context.Background())
	defer webhookSvc.Stop()

	previewSvc := service.NewPreviewService(projectRepo, versionRepo, accessLogRepo, grants, cacheRepo, webhookSvc, nil, logr, cfg.Preview)
	previewSvc.SetMetrics(metricsSvc)

	projectSvc := service.NewProjectService(
		projectRepo, versionRepo, historyRepo, accessLogRepo,
		clientRepo, settingsSvc, cacheRepo, webhookSvc, userRepo,
		nil, logr, cfg.Preview,
		service.ProjectServiceConfig{PreviewBaseURL: cfg.Preview.BaseURL},
	)

	briefingSvc := service.NewBriefingService(briefingRepo, projectSvc, webhookSvc, nil, logr)
	leadSvc := service.NewLeadService(leadRepo, nil, logr, cfg.Leads.Enabled)
	clientSvc := service.NewClientService(clientRepo, projectRepo, logr)
	userSvc := service.NewUserService(userRepo, nil, logr)
	mediaSvc := service.NewMediaService(mediaStore, mediaSigner, cfg.APIPrefix, cfg.Media, logr)
	reportSvc := service.NewReportService(leadRepo, projectRepo, versionRepo, historyRepo, reportStore, mediaSigner, service.ReportConfig{APIPrefix: cfg.APIPrefix}, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "harmonia-api",
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	previewHandler := handler.NewPreviewHandler(previewSvc)
	briefingHandler := handler.NewBriefingHandler(briefingSvc)
	leadHandler := handler.NewLeadHandler(leadSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	mediaHandler := handler.NewMediaHandler(mediaSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: marketing site forms and the client preview flow.
	api.POST("/briefings", briefingHandler.Submit)
	api.POST("/leads", leadHandler.Capture)
	api.GET("/media/:token", mediaHandler.Stream)

	preview := api.Group("/preview/:code")
	preview.POST("/authenticate", previewHandler.Authenticate)
	preview.GET("", previewHandler.Get)
	preview.POST("/feedback", previewHandler.SubmitFeedback)
	preview.POST("/approve", previewHandler.Approve)
	preview.DELETE("/session", previewHandler.Logout)

	// Auth.
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)

	// Back office.
	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc))
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleProducer)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	superOnly := middleware.RequireRoles(models.RoleSuperAdmin)

	projects := admin.Group("/projects", staff)
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.GET("/:id", projectHandler.Get)
	projects.PUT("/:id", projectHandler.Update)
	projects.DELETE("/:id", admins, projectHandler.Delete)
	projects.POST("/:id/code", projectHandler.GenerateAccessCode)
	projects.POST("/:id/deadline", projectHandler.ExtendDeadline)
	projects.GET("/:id/versions", projectHandler.ListVersions)
	projects.POST("/:id/versions", projectHandler.AddVersion)
	projects.POST("/:id/media", mediaHandler.Upload)
	projects.GET("/:id/history", projectHandler.History)
	projects.GET("/:id/access-logs", projectHandler.AccessLogs)

	briefings := admin.Group("/briefings", staff)
	briefings.GET("", briefingHandler.List)
	briefings.GET("/:id", briefingHandler.Get)
	briefings.PUT("/:id/status", briefingHandler.UpdateStatus)
	briefings.POST("/:id/convert", briefingHandler.Convert)

	admin.GET("/clients", staff, clientHandler.List)
	admin.GET("/clients/:email", staff, clientHandler.Get)
	admin.GET("/leads", staff, leadHandler.List)

	settings := admin.Group("/settings", admins)
	settings.GET("", settingsHandler.List)
	settings.GET("/:key", settingsHandler.Get)
	settings.PUT("/:key", settingsHandler.Update)

	webhooks := admin.Group("/webhooks", admins)
	webhooks.POST("/test", webhookHandler.SendTest)
	webhooks.GET("/deliveries", webhookHandler.ListDeliveries)

	if cfg.Reports.Enabled {
		reports := admin.Group("/reports", admins)
		exportAudit := middleware.Audit(userRepo, models.AuditActionReportExport, "report")
		reports.POST("/leads", exportAudit, reportHandler.ExportLeads)
		reports.POST("/projects", exportAudit, reportHandler.ExportProjects)
		reports.POST("/projects/:id/summary", exportAudit, reportHandler.ProjectSummary)
		reports.GET("/download/:token", reportHandler.Download)
	}

	users := admin.Group("/users", superOnly)
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	admin.GET("/system/metrics", admins, metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
