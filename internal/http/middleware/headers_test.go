package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		ContentTypeNosniff:    true,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
	handler := middleware.SecurityHeaders(cfg)(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("X-XSS-Protection"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	// swagger UI needs inline scripts
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'unsafe-inline'")
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SecurityConfig
		want string
	}{
		{name: "max age only", cfg: config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 31536000}, want: "max-age=31536000"},
		{name: "subdomains", cfg: config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true}, want: "max-age=600; includeSubDomains"},
		{name: "preload", cfg: config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true, HSTSPreload: true}, want: "max-age=600; includeSubDomains; preload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			middleware.SecurityHeaders(&tt.cfg)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, w.Header().Get("Strict-Transport-Security"))
		})
	}
}

func preflight(t *testing.T, cfg *config.CORSConfig, environment, origin string) string {
	t.Helper()
	handler := middleware.CORS(cfg, environment, zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/notes", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Header().Get("Access-Control-Allow-Origin")
}

func TestCORS(t *testing.T) {
	base := func(origins ...string) *config.CORSConfig {
		return &config.CORSConfig{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}
	}

	t.Run("development allows any origin when none configured", func(t *testing.T) {
		assert.Equal(t, "http://localhost:5173", preflight(t, base(), "development", "http://localhost:5173"))
	})

	t.Run("production denies when none configured", func(t *testing.T) {
		assert.Empty(t, preflight(t, base(), "production", "https://evil.example.com"))
	})

	t.Run("explicit origins", func(t *testing.T) {
		cfg := base("https://notes.example.com")
		assert.Equal(t, "https://notes.example.com", preflight(t, cfg, "production", "https://notes.example.com"))
		assert.Empty(t, preflight(t, cfg, "production", "https://other.example.com"))
	})

	t.Run("wildcard echoes the origin", func(t *testing.T) {
		assert.Equal(t, "https://any.example.com", preflight(t, base("*"), "production", "https://any.example.com"))
	})
}
