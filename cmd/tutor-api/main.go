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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mandarin-tutor-api/api/swagger"
	"github.com/noah-isme/mandarin-tutor-api/internal/handler"
	"github.com/noah-isme/mandarin-tutor-api/internal/middleware"
	"github.com/noah-isme/mandarin-tutor-api/internal/oracle"
	"github.com/noah-isme/mandarin-tutor-api/internal/repository"
	"github.com/noah-isme/mandarin-tutor-api/internal/service"
	"github.com/noah-isme/mandarin-tutor-api/pkg/cache"
	"github.com/noah-isme/mandarin-tutor-api/pkg/config"
	"github.com/noah-isme/mandarin-tutor-api/pkg/database"
	"github.com/noah-isme/mandarin-tutor-api/pkg/jobs"
	"github.com/noah-isme/mandarin-tutor-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mandarin-tutor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mandarin-tutor-api/pkg/middleware/requestid"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

// @title Mandarin Tutor API
// @version 0.1.0
// @description Adaptive session state and trajectory engine for a children's Chinese tutoring agent
// @BasePath /
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

	store, err := storage.NewLocalStorage(cfg.Storage.DataDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init data directory", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Profiles: file store by default, Postgres when configured.
	var profiles repository.ProfileRepository
	switch cfg.Storage.ProfileDriver {
	case "postgres":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		profiles = repository.NewPostgresProfileRepository(db, cfg.Sessions.EmotionHistoryLimit)
	default:
		profiles = repository.NewFileProfileRepository(store, cfg.Sessions.EmotionHistoryLimit, logr)
	}

	trajectories := repository.NewTrajectoryRepository(store, logr)
	sessionLogs := repository.NewSessionLogRepository(store, logr)

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	oracleClient := oracle.NewClient(cfg.Oracle, logr)

	emotionSvc := service.NewEmotionService(emotionOracle(oracleClient), metricsSvc, logr)
	levelSvc := service.NewLevelService(levelOracle(oracleClient), metricsSvc, logr)
	policySvc := service.NewPolicyService(policyOracle(oracleClient), metricsSvc, logr)
	wordSvc := service.NewWordService(time.Now().UnixNano())
	trajectorySvc := service.NewTrajectoryService(emotionSvc, policySvc, metricsSvc, logr)
	reportSvc := service.NewReportService(nil, nil, logr)
	sessionSvc := service.NewSessionService(profiles, sessionLogs, emotionSvc, levelSvc, policySvc, wordSvc,
		metricsSvc, cfg.Sessions.LevelCheckInterval, logr)

	jobSvc := service.NewTrajectoryJobService(trajectorySvc, trajectories, sessionLogs, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	jobSvc.Start(ctx)
	defer jobSvc.Stop()

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret:           cfg.JWT.Secret,
		TokenExpiry:      cfg.JWT.Expiration,
		Issuer:           "mandarin-tutor-api",
		ClientID:         cfg.Auth.ClientID,
		ClientSecretHash: cfg.Auth.ClientSecretHash,
	})

	sessionHandler := handler.NewSessionHandler(sessionSvc, validate)
	trajectoryHandler := handler.NewTrajectoryHandler(trajectorySvc, trajectories, sessionLogs, reportSvc, jobSvc, cacheSvc, validate, logr)
	profileHandler := handler.NewProfileHandler(profiles, validate)
	wordHandler := handler.NewWordHandler(wordSvc)
	reportHandler := handler.NewReportHandler(sessionSvc, profiles, reportSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/token", authHandler.Token)

	protected := api.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.JWT(authSvc))
	}

	protected.POST("/sessions", sessionHandler.Start)
	protected.POST("/sessions/:id/messages", sessionHandler.Message)
	protected.GET("/sessions/:id/summary", sessionHandler.Summary)
	protected.POST("/sessions/:id/end", sessionHandler.End)

	protected.GET("/profiles/:id", profileHandler.Get)
	protected.POST("/profiles/:id/words", profileHandler.RecordWord)

	protected.POST("/trajectories/generate", trajectoryHandler.Generate)
	protected.GET("/trajectories/:name", trajectoryHandler.Get)
	protected.GET("/trajectories/:name/statistics", trajectoryHandler.Statistics)
	if cfg.Exports.Enabled {
		protected.GET("/trajectories/:name/export", trajectoryHandler.Export)
		protected.GET("/reports/sessions/:id", reportHandler.SessionReport)
	}

	protected.GET("/words", wordHandler.List)
	protected.GET("/words/categories", wordHandler.Categories)
	protected.GET("/words/:word", wordHandler.Get)

	protected.GET("/diagnostics/metrics", metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// The oracle adapters return typed nils when the client is absent; these
// helpers keep the service constructors' interface arguments nil in that
// case instead of a non-nil interface wrapping a nil pointer.
func emotionOracle(client *oracle.Client) service.EmotionOracle {
	if c := oracle.NewEmotionClassifier(client); c != nil {
		return c
	}
	return nil
}

func levelOracle(client *oracle.Client) service.LevelOracle {
	if c := oracle.NewLevelEvaluator(client); c != nil {
		return c
	}
	return nil
}

func policyOracle(client *oracle.Client) service.PolicyOracle {
	if c := oracle.NewPolicyGenerator(client); c != nil {
		return c
	}
	return nil
}
