package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/database"
	"github.com/inkwell-notes/notes-api/internal/datawarehouse"
	"github.com/inkwell-notes/notes-api/internal/http/handler"
	"github.com/inkwell-notes/notes-api/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/inkwell-notes/notes-api/docs" // Import generated swagger docs
)

const readinessTimeout = 3 * time.Second

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	db                *gorm.DB
	dwClient          *datawarehouse.Client
	cache             cache.Cache
	invalidator       middleware.Invalidator
	gatherer          prometheus.Gatherer
	metrics           *middleware.Metrics
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	responseCache     *middleware.ResponseCache
	authHandler       *handler.AuthHandler
	noteHandler       *handler.NoteHandler
	commentHandler    *handler.CommentHandler
	likeHandler       *handler.LikeHandler
	attachmentHandler *handler.AttachmentHandler
	categoryHandler   *handler.CategoryHandler
	tagHandler        *handler.TagHandler
	statsHandler      *handler.StatsHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	dwClient *datawarehouse.Client,
	c cache.Cache,
	invalidator middleware.Invalidator,
	gatherer prometheus.Gatherer,
	metrics *middleware.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	responseCache *middleware.ResponseCache,
	authHandler *handler.AuthHandler,
	noteHandler *handler.NoteHandler,
	commentHandler *handler.CommentHandler,
	likeHandler *handler.LikeHandler,
	attachmentHandler *handler.AttachmentHandler,
	categoryHandler *handler.CategoryHandler,
	tagHandler *handler.TagHandler,
	statsHandler *handler.StatsHandler,
) *Router {
	return &Router{
		cfg:               cfg,
		logger:            logger,
		db:                db,
		dwClient:          dwClient,
		cache:             c,
		invalidator:       invalidator,
		gatherer:          gatherer,
		metrics:           metrics,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		responseCache:     responseCache,
		authHandler:       authHandler,
		noteHandler:       noteHandler,
		commentHandler:    commentHandler,
		likeHandler:       likeHandler,
		attachmentHandler: attachmentHandler,
		categoryHandler:   categoryHandler,
		tagHandler:        tagHandler,
		statsHandler:      statsHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	if rt.cfg.Server.TrustProxyHeaders {
		// Only behind a proxy that overwrites X-Forwarded-For; likes and rate limits key on this address
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(rt.logger))
	r.Use(rt.metrics.Handler)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		writeHealth(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", rt.ready)

	if rt.cfg.Server.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints get their own stricter limit
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitLogin)
			r.Post("/auth/register", rt.authHandler.Register)
			r.Post("/auth/login", rt.authHandler.Login)
		})

		// Public routes; a valid token or API key reveals drafts
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.OptionalAuthenticate)
			r.Use(rt.rateLimiter.Limit)

			cached := r.With(rt.responseCache.Handler)
			cached.Get("/notes", rt.noteHandler.List)
			cached.Get("/notes/archive", rt.noteHandler.Archive)
			cached.Get("/notes/{id}/comments", rt.commentHandler.List)
			cached.Get("/categories", rt.categoryHandler.List)
			cached.Get("/tags", rt.tagHandler.List)

			// Not cached: reads count views
			r.Get("/notes/{id}", rt.noteHandler.Get)
			r.Get("/notes/{id}/attachments", rt.attachmentHandler.List)
			r.Get("/attachments/{id}", rt.attachmentHandler.Download)
			r.Get("/categories/{id}", rt.categoryHandler.Get)

			// Anonymous likes, one per client address
			r.Get("/notes/{id}/like", rt.likeHandler.Status)
			r.Post("/notes/{id}/like", rt.likeHandler.Like)
			r.Delete("/notes/{id}/like", rt.likeHandler.Unlike)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)

			// Auth
			r.Get("/auth/me", rt.authHandler.Me)
			// Author names are embedded in cached notes and comments
			r.With(middleware.Invalidate(rt.invalidator, cache.PatternNotes)).Put("/auth/me", rt.authHandler.UpdateMe)
			r.Put("/auth/password", rt.authHandler.ChangePassword)

			// Comments
			r.Post("/notes/{id}/comments", rt.commentHandler.Create)
			r.Delete("/comments/{id}", rt.commentHandler.Delete)

			// Owner only
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireOwner)

				r.Get("/users", rt.authHandler.ListUsers)
				r.With(rt.responseCache.Handler).Get("/stats", rt.statsHandler.Get)
				r.Get("/comments/recent", rt.commentHandler.ListRecent)

				// Notes
				r.Post("/notes", rt.noteHandler.Create)
				r.Put("/notes/{id}", rt.noteHandler.Update)
				r.Delete("/notes/{id}", rt.noteHandler.Delete)
				r.Post("/notes/{id}/publish", rt.noteHandler.Publish)
				r.Post("/notes/{id}/unpublish", rt.noteHandler.Unpublish)

				// Attachments
				r.Post("/notes/{id}/attachments", rt.attachmentHandler.Upload)
				r.Delete("/attachments/{id}", rt.attachmentHandler.Delete)

				// Taxonomy
				r.Post("/categories", rt.categoryHandler.Create)
				r.Put("/categories/{id}", rt.categoryHandler.Update)
				r.Delete("/categories/{id}", rt.categoryHandler.Delete)
				r.Post("/tags", rt.tagHandler.Create)
				r.Put("/tags/{id}", rt.tagHandler.Update)
				r.Delete("/tags/{id}", rt.tagHandler.Delete)
			})
		})
	})

	return r
}

// ready reports healthy only when the database and the response cache both answer
func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	// Check database
	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{
			"status": "healthy",
		}
	}

	// Check cache
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := rt.cache.Ping(ctx); err != nil {
		rt.logger.Error("Cache health check failed", zap.Error(err))
		checks["cache"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
			"driver": rt.cfg.Cache.Driver,
		}
		allHealthy = false
	} else {
		checks["cache"] = map[string]interface{}{
			"status": "healthy",
			"driver": rt.cfg.Cache.Driver,
		}
	}

	// Warehouse is optional; it is reported but never fails readiness
	checks["datawarehouse"] = rt.dwClient.HealthCheck(ctx)

	status := "healthy"
	code := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
