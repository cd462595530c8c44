package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkwell-notes/notes-api/docs"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/database"
	"github.com/inkwell-notes/notes-api/internal/datawarehouse"
	"github.com/inkwell-notes/notes-api/internal/http/handler"
	"github.com/inkwell-notes/notes-api/internal/http/middleware"
	"github.com/inkwell-notes/notes-api/internal/http/router"
	"github.com/inkwell-notes/notes-api/internal/jobs"
	"github.com/inkwell-notes/notes-api/internal/logger"
	"github.com/inkwell-notes/notes-api/internal/repository"
	"github.com/inkwell-notes/notes-api/internal/service"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// @title Inkwell Notes API
// @version 1.0
// @description Personal notes and blogging API with categories, tags, comments and anonymous likes

// @contact.name API Support
// @contact.email support@inkwell-notes.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("PUBLIC_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	responses, err := cache.New(cfg, log)
	if err != nil {
		// A Redis outage degrades to per-process caching
		log.Warn("Cache unavailable, falling back to in-process cache", zap.Error(err))
		responses = cache.NewMemoryCache(cfg.Cache.KeyPrefix)
	}
	defer func() { _ = responses.Close() }()
	invalidator := cache.NewInvalidator(responses, log)

	// Data warehouse is optional; the app runs without it
	dwClient, err := datawarehouse.NewClient(&cfg.DataWarehouse, logger.Component(log, "datawarehouse"))
	if err != nil {
		log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	// Services
	tokens := auth.NewTokenManager(&cfg.JWT)
	authService := service.NewAuthService(userRepo, auth.NewPasswordHasher(cfg.JWT.BcryptCost), tokens, log)
	tagService := service.NewTagService(tagRepo, invalidator, log)
	categoryService := service.NewCategoryService(categoryRepo, invalidator, log)
	noteService := service.NewNoteService(noteRepo, userRepo, categoryRepo, attachmentRepo, tagService, fileStorage, invalidator, log)
	commentService := service.NewCommentService(commentRepo, noteRepo, invalidator, log)
	likeService := service.NewLikeService(likeRepo, noteRepo, invalidator, log)
	attachmentService := service.NewAttachmentService(attachmentRepo, noteRepo, fileStorage, cfg.Storage.MaxUploadBytes(), invalidator, log)
	statsService := service.NewStatsService(noteRepo, commentRepo, likeRepo, categoryRepo, tagRepo, userRepo, invalidator, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		dwClient,
		responses,
		invalidator,
		registry,
		metrics,
		auth.NewMiddleware(cfg, tokens, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		middleware.NewResponseCache(responses, invalidator, cfg.Cache.TTLDuration(), metrics, log),
		handler.NewAuthHandler(authService, log),
		handler.NewNoteHandler(noteService, log),
		handler.NewCommentHandler(commentService, log),
		handler.NewLikeHandler(likeService, log),
		handler.NewAttachmentHandler(attachmentService, log),
		handler.NewCategoryHandler(categoryService, log),
		handler.NewTagHandler(tagService, log),
		handler.NewStatsHandler(statsService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		jobLog := logger.Component(log, "jobs")
		scheduler = jobs.NewScheduler(jobLog)
		if err := jobs.RegisterReconcileJob(scheduler, statsService, jobLog, cfg.Jobs.ReconcileCron, cfg.Jobs.TimeoutDuration()); err != nil {
			log.Error("Failed to register reconcile job", zap.Error(err))
		}
		if err := jobs.RegisterWarehouseSyncJob(scheduler, statsService, dwClient, jobLog, cfg.Jobs.WarehouseSyncCron, cfg.Jobs.TimeoutDuration()); err != nil {
			log.Error("Failed to register warehouse sync job", zap.Error(err))
		}
		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.JobNames()))
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := dwClient.Close(); err != nil {
			log.Warn("Error closing data warehouse connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
