package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-notes/notes-api/internal/auth"
	"github.com/inkwell-notes/notes-api/internal/cache"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheHeader reports whether a response came from the cache
const CacheHeader = "X-Cache"

// Invalidator removes cached responses matching glob patterns
type Invalidator interface {
	Invalidate(ctx context.Context, patterns ...string)
}

// Generations reports the current invalidation generation
type Generations interface {
	Generation() uint64
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// bufferedResponse captures a handler's output so it can be stored and shared
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) WriteHeader(status int)      { b.status = status }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

// ResponseCache stores successful GET responses keyed by caller scope, path and query
type ResponseCache struct {
	cache       cache.Cache
	generations Generations
	ttl         time.Duration
	metrics     *Metrics
	logger      *zap.Logger
	group       singleflight.Group
}

func NewResponseCache(c cache.Cache, generations Generations, ttl time.Duration, metrics *Metrics, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{
		cache:       c,
		generations: generations,
		ttl:         ttl,
		metrics:     metrics,
		logger:      logger,
	}
}

// scope separates responses that may include drafts from public ones
func scope(ctx context.Context) string {
	if auth.CanInContext(ctx, domain.PermissionNotesReadDrafts) {
		return cache.ScopeOwner
	}
	return cache.ScopePublic
}

// Handler serves cached GET responses. It must run after optional authentication
// so the caller scope is known.
func (rc *ResponseCache) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || rc.ttl <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache") {
			rc.metrics.cacheLookup("bypass")
			w.Header().Set(CacheHeader, "MISS")
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := cache.ResponseKey(scope(ctx), r.URL.Path, r.URL.Query())

		raw, ok, err := rc.cache.Get(ctx, key)
		if err != nil {
			rc.metrics.cacheLookup("error")
			rc.logger.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			var entry cachedResponse
			if err := json.Unmarshal(raw, &entry); err == nil {
				rc.metrics.cacheLookup("hit")
				writeCached(w, &entry, "HIT")
				return
			}
			rc.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
		}
		rc.metrics.cacheLookup("miss")

		// concurrent misses for the same key share one upstream call
		leader := false
		v, _, _ := rc.group.Do(key, func() (interface{}, error) {
			leader = true
			generation := rc.generations.Generation()

			buf := newBufferedResponse()
			next.ServeHTTP(buf, r)

			entry := &cachedResponse{
				Status:      buf.status,
				ContentType: buf.header.Get("Content-Type"),
				Body:        buf.body.Bytes(),
			}
			if entry.Status != http.StatusOK {
				return entry, nil
			}
			if rc.generations.Generation() != generation {
				rc.logger.Debug("not caching response rendered across an invalidation", zap.String("key", key))
				return entry, nil
			}
			rc.store(ctx, key, entry)
			return entry, nil
		})

		entry := v.(*cachedResponse)
		if !leader && entry.Status != http.StatusOK {
			// the leader's failure may be its own, such as a cancelled request
			w.Header().Set(CacheHeader, "MISS")
			next.ServeHTTP(w, r)
			return
		}
		writeCached(w, entry, "MISS")
	})
}

func (rc *ResponseCache) store(ctx context.Context, key string, entry *cachedResponse) {
	raw, err := json.Marshal(entry)
	if err != nil {
		rc.logger.Warn("failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := rc.cache.Set(context.WithoutCancel(ctx), key, raw, rc.ttl); err != nil {
		rc.logger.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func writeCached(w http.ResponseWriter, entry *cachedResponse, status string) {
	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Header().Set(CacheHeader, status)
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}

// Invalidate deletes the given patterns after every successful non-GET request
func Invalidate(inv Invalidator, patterns ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			rw := wrap(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode >= 200 && rw.statusCode < 300 {
				inv.Invalidate(r.Context(), patterns...)
			}
		})
	}
}
