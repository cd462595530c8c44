// Package cache stores rendered API responses and removes them by glob pattern
// when the underlying data changes.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/inkwell-notes/notes-api/internal/config"
	"go.uber.org/zap"
)

// Cache is a byte-oriented key/value store with TTLs and pattern deletes.
// Keys passed in are unprefixed; implementations add the configured prefix.
type Cache interface {
	// Get returns the value and true on a hit, false on a miss
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl; a zero ttl keeps the entry until deleted
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a Redis-style glob and reports how many were removed
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Response cache scopes. Owners see drafts, so their responses never mix with public ones.
const (
	ScopePublic = "public"
	ScopeOwner  = "owner"
)

const responseKeyPrefix = "resp:"

// ResponseKey builds the cache key for a GET response. Query parameters are
// encoded in sorted order so equivalent URLs share an entry.
func ResponseKey(scope, path string, query url.Values) string {
	key := responseKeyPrefix + scope + ":" + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

// ResponsePattern matches every cached response, in any scope, whose path starts with pathPrefix
func ResponsePattern(pathPrefix string) string {
	return responseKeyPrefix + "*:" + pathPrefix + "*"
}

// Patterns invalidated by writes
var (
	PatternNotes      = ResponsePattern("/api/v1/notes")
	PatternCategories = ResponsePattern("/api/v1/categories")
	PatternTags       = ResponsePattern("/api/v1/tags")
	PatternStats      = ResponsePattern("/api/v1/stats")
	PatternAll        = responseKeyPrefix + "*"
)

// New builds the cache selected by cache.driver
func New(cfg *config.Config, logger *zap.Logger) (Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		client := NewRedisClient(&cfg.Redis)
		c := NewRedisCache(client, cfg.Cache.KeyPrefix, cfg.Cache.ScanCount)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeoutDuration())
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("Response cache connected",
			zap.String("driver", "redis"),
			zap.String("addr", cfg.Redis.Addr),
			zap.Int("db", cfg.Redis.DB),
		)
		return c, nil
	case "memory":
		logger.Info("Response cache initialized", zap.String("driver", "memory"))
		return NewMemoryCache(cfg.Cache.KeyPrefix), nil
	case "none", "":
		logger.Info("Response cache disabled")
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %q", cfg.Cache.Driver)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error                  { return nil }
func (Noop) DeletePattern(context.Context, string) (int, error)       { return 0, nil }
func (Noop) Ping(context.Context) error                               { return nil }
func (Noop) Close() error                                             { return nil }
