package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/inkwell-notes/notes-api/internal/config"
	"go.uber.org/zap"
)

// CORS returns a CORS middleware configured from the application config
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	if len(cfg.AllowedOrigins) > 0 && !slices.Contains(cfg.AllowedOrigins, "*") {
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", cfg.AllowedOrigins))
		return cors.Handler(options)
	}

	// An empty AllowedOrigins means "*" to go-chi/cors, so every other case goes through AllowOriginFunc
	allowAll := isLocalEnvironment(environment)
	switch {
	case len(cfg.AllowedOrigins) > 0:
		if !allowAll {
			logger.Warn("CORS configured with wildcard origin in non-development environment",
				zap.String("environment", environment))
		}
		allowAll = true
	case allowAll:
		logger.Info("CORS configured to allow all origins in development mode")
	default:
		logger.Warn("CORS configured with no allowed origins - all cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
		return allowAll && origin != ""
	}
	return cors.Handler(options)
}

func isLocalEnvironment(environment string) bool {
	return environment == "" || environment == "development" || environment == "local"
}
