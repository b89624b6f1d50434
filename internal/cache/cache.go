package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/socialchef/recipebox/internal/services/scraper"
)

// DocumentCache stores scraped documents by source URL so repeated requests
// for the same page skip the fetch.
type DocumentCache interface {
	// Get returns the cached document for url, or nil on a miss.
	Get(ctx context.Context, url string) (*scraper.ScrapedDocument, error)

	// Set stores doc under url with the given TTL.
	Set(ctx context.Context, url string, doc *scraper.ScrapedDocument, ttl time.Duration) error

	// Delete removes the cached document for url.
	Delete(ctx context.Context, url string) error
}

// NewRedisClient parses a redis:// URL and returns a client with tracing and
// metrics instrumentation attached.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		return nil, fmt.Errorf("instrument redis metrics: %w", err)
	}
	return client, nil
}
