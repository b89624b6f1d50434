package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialchef/recipebox/internal/services/scraper"
)

// RedisDocumentCache provides Redis-backed caching for scraped documents.
// Redis failures are logged and treated as misses.
type RedisDocumentCache struct {
	client *redis.Client
	prefix string
}

// NewRedisDocumentCache creates a document cache. A nil client disables caching.
func NewRedisDocumentCache(client *redis.Client) *RedisDocumentCache {
	return &RedisDocumentCache{
		client: client,
		prefix: "scrape:",
	}
}

// makeKey creates a cache key from a URL by hashing it.
func (c *RedisDocumentCache) makeKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s%x", c.prefix, hash)
}

func (c *RedisDocumentCache) Get(ctx context.Context, url string) (*scraper.ScrapedDocument, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.makeKey(url)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis cache get failed", "error", err)
		return nil, nil
	}

	var doc scraper.ScrapedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached document", "error", err)
		return nil, nil
	}

	return &doc, nil
}

func (c *RedisDocumentCache) Set(ctx context.Context, url string, doc *scraper.ScrapedDocument, ttl time.Duration) error {
	if c == nil || c.client == nil || doc == nil {
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.makeKey(url), data, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set failed", "error", err)
	}

	return nil
}

func (c *RedisDocumentCache) Delete(ctx context.Context, url string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, c.makeKey(url)).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete failed", "error", err)
	}

	return nil
}
