package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/certilink/certilink-api/api/swagger"
	"github.com/certilink/certilink-api/internal/chain"
	"github.com/certilink/certilink-api/internal/handler"
	"github.com/certilink/certilink-api/internal/middleware"
	"github.com/certilink/certilink-api/internal/models"
	"github.com/certilink/certilink-api/internal/repository"
	"github.com/certilink/certilink-api/internal/service"
	"github.com/certilink/certilink-api/pkg/cache"
	"github.com/certilink/certilink-api/pkg/config"
	"github.com/certilink/certilink-api/pkg/database"
	"github.com/certilink/certilink-api/pkg/jobs"
	"github.com/certilink/certilink-api/pkg/logger"
	corsmiddleware "github.com/certilink/certilink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/certilink/certilink-api/pkg/middleware/requestid"
	"github.com/certilink/certilink-api/pkg/storage"
)

// @title CertiLink API
// @version 1.0.0
// @description Certificate authenticity platform: institution onboarding, learner linkage and public credential verification
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// The cache is advisory. A missing redis degrades to uncached reads.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	institutionRepo := repository.NewInstitutionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	learnerRepo := repository.NewLearnerRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	chainClient := chain.New(cfg.Chain.GatewayURL, cfg.Chain.ContractAddress, cfg.Chain.Timeout)

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr, metricsSvc)
	authSvc := service.NewAuthService(institutionRepo, learnerRepo, sessionRepo, validate, logr, service.AuthConfig{
		TokenSecret:   cfg.JWT.Secret,
		TokenExpiry:   cfg.JWT.Expiration,
		Issuer:        cfg.JWT.Issuer,
		AdminEmail:    cfg.Admin.Email,
		AdminPassword: cfg.Admin.Password,
	})
	institutionSvc := service.NewInstitutionService(institutionRepo, documentRepo, cacheRepo, validate, logr, cfg.Cache.PublicListTTL)
	intakeSvc := service.NewIntakeService(store, documentRepo, metricsSvc, logr, service.IntakeConfig{
		MaxFileSize: cfg.Uploads.MaxFileSize,
		MaxFiles:    cfg.Uploads.MaxFilesPerReq,
	})
	learnerSvc := service.NewLearnerService(learnerRepo, institutionRepo, validate, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, institutionRepo, chainClient, cacheRepo, store, signer, metricsSvc, validate, logr, service.CertificateConfig{
		ChainTimeout: cfg.Chain.Timeout,
		CacheTTL:     cfg.Cache.CertificateTTL,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	institutionHandler := handler.NewInstitutionHandler(institutionSvc, intakeSvc)
	adminHandler := handler.NewAdminHandler(institutionSvc, store)
	learnerHandler := handler.NewLearnerHandler(learnerSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc, store)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	maintenance := jobs.NewQueue("maintenance", maintenanceHandler(sessionRepo, store, logr), jobs.QueueConfig{
		Workers: 1,
		Logger:  logr.Sugar(),
	})
	maintenance.Start(context.Background())
	defer maintenance.Stop()
	go scheduleMaintenance(maintenance, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/register/learner", learnerHandler.Register)
	api.POST("/register/institution", institutionHandler.Register)
	api.POST("/register/institution/upload", institutionHandler.RegisterUpload)
	api.POST("/register/institution/external-storage", institutionHandler.RegisterExternal)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/verify", middleware.JWT(authSvc), authHandler.Verify)
	api.POST("/auth/logout", middleware.JWT(authSvc), authHandler.Logout)

	api.GET("/public/institutions", institutionHandler.PublicList)
	api.GET("/institutions", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), institutionHandler.List)
	api.GET("/institution/:id/documents", middleware.JWT(authSvc), institutionHandler.Documents)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.PATCH("/institution/:id/status", adminHandler.SetStatus)
	admin.PATCH("/institution/:id/suspend", adminHandler.Suspend)
	admin.GET("/document/:id/view", adminHandler.ViewDocument)
	admin.GET("/document/:id/download", adminHandler.DownloadDocument)

	api.GET("/certificats/public/:uuid", certificateHandler.Get)
	api.GET("/certificats/public/:uuid/verify", certificateHandler.Verify)
	api.GET("/certificats/files/:token", certificateHandler.Download)
	api.POST("/certificats",
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleInstitution),
		middleware.RequireInstitutionStatus(models.InstitutionActive),
		certificateHandler.Issue)
	api.GET("/certificats",
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleInstitution),
		certificateHandler.List)

	api.GET("/learner/linkages", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleLearner), learnerHandler.Linkages)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

const (
	jobPurgeSessions   = "purge_sessions"
	jobSweepStagingDir = "sweep_staging_dir"
)

// maintenanceHandler dispatches the periodic cleanup jobs: expired session
// rows (revoked tokens must not pile up) and upload staging directories
// orphaned by crashed registration requests.
func maintenanceHandler(sessions *repository.SessionRepository, store *storage.LocalStorage, logr *zap.Logger) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case jobPurgeSessions:
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			deleted, err := sessions.DeleteExpired(runCtx, time.Now().UTC())
			if err != nil {
				return err
			}
			if deleted > 0 {
				logr.Debug("expired sessions removed", zap.Int64("count", deleted))
			}
			return nil
		case jobSweepStagingDir:
			removed, err := store.SweepTemp(24 * time.Hour)
			if err != nil {
				return err
			}
			if removed > 0 {
				logr.Debug("stale staging dirs removed", zap.Int("count", removed))
			}
			return nil
		default:
			logr.Warn("unknown maintenance job", zap.String("type", job.Type))
			return nil
		}
	}
}

func scheduleMaintenance(queue *jobs.Queue, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		for _, jobType := range []string{jobPurgeSessions, jobSweepStagingDir} {
			if err := queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType}); err != nil {
				logr.Warn("maintenance enqueue failed", zap.String("type", jobType), zap.Error(err))
			}
		}
	}
}
