package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"github.com/inkwell-notes/notes-api/internal/logger"
	"go.uber.org/zap"
)

// SystemUserID identifies requests authenticated with the admin API key
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens *TokenManager
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.Config, tokens *TokenManager, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		apiKey: cfg.ApiKey.Value,
		logger: logger,
	}
}

// Authenticate rejects requests without a valid API key or bearer token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Invalid API key")
				return
			}
			userCtx := systemUser()
			m.logger.Info("request authenticated",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("auth_type", "api_key"),
				zap.Duration("auth_duration", time.Since(start)),
			)
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Missing or malformed authorization header")
			return
		}

		userCtx, err := m.tokens.ValidateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			detail := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				detail = "Token has expired"
			}
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, detail)
			return
		}

		logger.WithUser(m.logger, userCtx.UserID.String(), userCtx.Username).Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_type", "jwt"),
			zap.String("role", string(userCtx.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// OptionalAuthenticate attaches the user when credentials are valid and never rejects.
// Public endpoints use it to reveal owner-only data such as drafts.
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if m.validateAPIKey(apiKey) {
				next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), systemUser())))
				return
			}
			m.logger.Debug("optional auth: invalid API key, continuing unauthenticated",
				zap.String("path", r.URL.Path),
			)
		}

		if token, ok := bearerToken(r); ok {
			userCtx, err := m.tokens.ValidateToken(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
				return
			}
			m.logger.Debug("optional auth: token validation failed, continuing unauthenticated",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole middleware ensures user has specific role
func (m *Middleware) RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Authentication required")
				return
			}
			if !userCtx.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner middleware ensures the caller manages the site
func (m *Middleware) RequireOwner(next http.Handler) http.Handler {
	return m.RequireRole(domain.RoleOwner)(next)
}

// RequirePermission middleware ensures user has specific permission
func (m *Middleware) RequirePermission(permission domain.PermissionType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Authentication required")
				return
			}
			if !userCtx.HasPermission(permission) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func systemUser() *UserContext {
	return &UserContext{
		UserID:      SystemUserID,
		Username:    "system",
		DisplayName: "System",
		Email:       "system@localhost",
		Role:        domain.RoleOwner,
		System:      true,
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func writeError(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
