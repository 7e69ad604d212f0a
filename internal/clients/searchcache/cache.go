// Package searchcache is a Redis read-through cache in front of a document
// retriever.
package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"voice-agent/internal/common/metrics"
	"voice-agent/internal/models"
)

const keyPrefix = "voice:search:"

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Retriever is the document retrieval capability being cached.
type Retriever interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

type Config struct {
	TTL time.Duration
}

type Cache struct {
	config *Config
	next   Retriever
	redis  *redis.Client
	logger Logger
}

func New(config *Config, next Retriever, redisClient *redis.Client, log Logger) *Cache {
	return &Cache{
		config: config,
		next:   next,
		redis:  redisClient,
		logger: log.With(map[string]interface{}{
			"component": "searchcache",
		}),
	}
}

// Key normalises query so that casing and spacing do not split entries.
func Key(query string) string {
	return keyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Search serves from cache when possible. Cache failures never fail the
// search; only successful results are stored.
func (c *Cache) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	key := Key(query)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached models.SearchResult
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			metrics.SearchCacheRequests.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
		metrics.SearchCacheRequests.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.SearchCacheRequests.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("cache lookup failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		metrics.SearchCacheRequests.WithLabelValues("error").Inc()
	}

	result, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		if setErr := c.redis.Set(ctx, key, data, c.config.TTL).Err(); setErr != nil {
			c.logger.Warn("cache store failed", map[string]interface{}{
				"key":   key,
				"error": setErr.Error(),
			})
		}
	}
	return result, nil
}
