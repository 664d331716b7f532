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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/curriculum-planner-api/api/swagger"
	"github.com/noah-isme/curriculum-planner-api/internal/handler"
	"github.com/noah-isme/curriculum-planner-api/internal/integration"
	"github.com/noah-isme/curriculum-planner-api/internal/planner"
	"github.com/noah-isme/curriculum-planner-api/internal/repository"
	"github.com/noah-isme/curriculum-planner-api/internal/service"
	"github.com/noah-isme/curriculum-planner-api/pkg/cache"
	"github.com/noah-isme/curriculum-planner-api/pkg/config"
	"github.com/noah-isme/curriculum-planner-api/pkg/database"
	"github.com/noah-isme/curriculum-planner-api/pkg/jobs"
	"github.com/noah-isme/curriculum-planner-api/pkg/logger"
)

// @title Curriculum Planner API
// @version 1.0.0
// @description Semester-by-semester study plans with prerequisite and credit validation
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(db, cfg.Database.MigrationsPath)
		if err != nil {
			logr.Sugar().Fatalw("failed to migrate database", "error", err)
		}
		logr.Sugar().Infow("database migrated", "version", version)
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := newCacheService(cfg, metricsSvc, logr)

	feedCfg := func(baseURL, apiKey string) integration.ClientConfig {
		return integration.ClientConfig{
			BaseURL:       baseURL,
			APIKey:        apiKey,
			Timeout:       cfg.Feeds.Timeout,
			RatePerSecond: cfg.Feeds.RatePerSecond,
			Burst:         cfg.Feeds.Burst,
			Retries:       cfg.Feeds.Retries,
			RetryDelay:    cfg.Feeds.RetryDelay,
		}
	}
	curriculumFeed := integration.NewCurriculumClient(feedCfg(cfg.Feeds.CurriculumURL, cfg.Feeds.CurriculumAPIKey), logr, metricsSvc)
	transcriptFeed := integration.NewTranscriptClient(feedCfg(cfg.Feeds.TranscriptURL, ""), logr, metricsSvc)
	identityFeed := integration.NewIdentityClient(feedCfg(cfg.Feeds.IdentityURL, ""), logr, metricsSvc)

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	projectionRepo := repository.NewProjectionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	validate := validator.New()
	planValidator := planner.NewValidator(cfg.Planner.MaxCreditsPerSemester, cfg.Planner.MinApprovedKeyLength)
	scheduler := planner.NewScheduler(cfg.Planner.MaxCreditsPerSemester, cfg.Planner.MaxIterations, cfg.Planner.MinApprovedKeyLength)

	authSvc := service.NewAuthService(identityFeed, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(curriculumFeed, courseRepo, cacheSvc, metricsSvc, cfg.Catalog.CacheTTL, logr)
	transcriptSvc := service.NewTranscriptService(transcriptFeed, cacheSvc, cfg.Transcript.CacheTTL, logr)
	projectionSvc := service.NewProjectionService(projectionRepo, assignmentRepo, studentRepo, db, metricsSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(projectionRepo, assignmentRepo, courseRepo, transcriptSvc, planValidator, db, cacheSvc, metricsSvc, logr)
	autoScheduleSvc := service.NewAutoScheduleService(projectionRepo, assignmentRepo, catalogSvc, transcriptSvc, scheduler, db, metricsSvc, logr)
	curriculumSvc := service.NewCurriculumService(projectionRepo, assignmentRepo, catalogSvc, transcriptSvc, planValidator, logr)
	exportSvc := service.NewExportService(projectionRepo, assignmentRepo, logr, nil, nil)

	syncWorker := service.NewCatalogSyncWorker(catalogSvc, logr)
	syncQueue := jobs.NewQueue("catalog-sync", syncWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Catalog.SyncWorkers,
		MaxRetries: cfg.Catalog.SyncRetries,
		RetryDelay: cfg.Feeds.RetryDelay,
		Logger:     logr,
	})
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	syncQueue.Start(rootCtx)
	defer syncQueue.Stop()

	syncScheduler := service.NewCatalogSyncScheduler(syncQueue, cfg.Catalog, logr)
	if err := syncScheduler.Start(); err != nil {
		logr.Sugar().Fatalw("failed to start catalog sync schedule", "error", err)
	}
	defer syncScheduler.Stop()

	r := newRouter(cfg, logr, routeDeps{
		metrics:     metricsSvc,
		tokens:      authSvc,
		auth:        handler.NewAuthHandler(authSvc),
		catalog:     handler.NewCatalogHandler(catalogSvc, syncScheduler),
		history:     handler.NewHistoryHandler(transcriptSvc),
		curriculum:  handler.NewCurriculumHandler(curriculumSvc),
		projections: handler.NewProjectionHandler(projectionSvc, exportSvc),
		assignments: handler.NewAssignmentHandler(assignmentSvc, autoScheduleSvc),
		probes:      handler.NewMetricsHandler(metricsSvc, db, syncQueue),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCacheService backs the cache with Redis when enabled and reachable,
// otherwise with the in-process store.
func newCacheService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	var repo service.CacheRepository = repository.NewLocalCacheRepository(cfg.Catalog.CacheTTL)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			repo = repository.NewCacheRepository(client, cfg.Redis.KeyPrefix, logr)
		}
	}
	return service.NewCacheService(repo, metrics, cfg.Catalog.CacheTTL, logr, true)
}
