package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const invalidateTimeout = 5 * time.Second

// Invalidator deletes cached responses after writes. Failures are logged, never returned.
type Invalidator struct {
	cache      Cache
	logger     *zap.Logger
	generation atomic.Uint64
}

// NewInvalidator creates an invalidator for the given cache
func NewInvalidator(c Cache, logger *zap.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// Generation changes every time Invalidate is called. Renders that started under
// an older generation must not be stored.
func (i *Invalidator) Generation() uint64 {
	return i.generation.Load()
}

// Invalidate removes every entry matching any of patterns
func (i *Invalidator) Invalidate(ctx context.Context, patterns ...string) {
	i.generation.Add(1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	for _, pattern := range patterns {
		n, err := i.cache.DeletePattern(ctx, pattern)
		if err != nil {
			i.logger.Warn("cache invalidation failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			continue
		}
		i.logger.Debug("cache invalidated",
			zap.String("pattern", pattern),
			zap.Int("deleted", n),
		)
	}
}
