package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarmadcodes/tbc/internal/model"
)

// Cache keys for article listings.
const (
	keyPublished      = "articles:published"
	keyFeaturedFormat = "articles:featured:%d"
)

// Config selects and tunes the cache backend.
type Config struct {
	RedisURL   string // Empty selects the in-memory backend
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int
}

// NewBackend builds a cache backend from config. When Redis is configured
// but unreachable the in-memory backend is used instead, so a cache outage
// never takes the site down.
func NewBackend(cfg Config) Cache {
	if cfg.RedisURL != "" {
		redisCache, err := NewRedisCache(RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return redisCache
		}
		slog.Warn("redis cache unavailable, falling back to memory", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	})
}

// ArticleCache caches published article listings. Every article mutation
// must call Invalidate so readers never see stale listings longer than the
// in-flight requests that already held them.
type ArticleCache struct {
	backend Cache
	ttl     time.Duration
}

// NewArticleCache creates an ArticleCache over the given backend.
func NewArticleCache(backend Cache, ttl time.Duration) *ArticleCache {
	return &ArticleCache{backend: backend, ttl: ttl}
}

// GetPublished returns the cached published listing, or ErrCacheMiss.
func (c *ArticleCache) GetPublished(ctx context.Context) ([]model.Article, error) {
	return c.get(ctx, keyPublished)
}

// SetPublished stores the published listing.
func (c *ArticleCache) SetPublished(ctx context.Context, articles []model.Article) error {
	return c.set(ctx, keyPublished, articles)
}

// GetFeatured returns the cached featured listing for a limit, or ErrCacheMiss.
func (c *ArticleCache) GetFeatured(ctx context.Context, limit int) ([]model.Article, error) {
	return c.get(ctx, fmt.Sprintf(keyFeaturedFormat, limit))
}

// SetFeatured stores the featured listing for a limit.
func (c *ArticleCache) SetFeatured(ctx context.Context, limit int, articles []model.Article) error {
	return c.set(ctx, fmt.Sprintf(keyFeaturedFormat, limit), articles)
}

// Invalidate drops every cached listing.
func (c *ArticleCache) Invalidate(ctx context.Context) {
	if err := c.backend.Clear(ctx); err != nil && !errors.Is(err, ErrCacheClosed) {
		slog.Warn("invalidating article cache", "category", model.EventCategoryCache, "error", err)
	}
}

// Close releases the underlying backend.
func (c *ArticleCache) Close() error {
	return c.backend.Close()
}

func (c *ArticleCache) get(ctx context.Context, key string) ([]model.Article, error) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		return nil, ErrCacheMiss
	}
	return articles, nil
}

func (c *ArticleCache) set(ctx context.Context, key string, articles []model.Article) error {
	data, err := json.Marshal(articles)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key, data, c.ttl)
}
