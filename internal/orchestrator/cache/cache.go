// Package cache stores successful provider results in Redis, keyed by a
// normalized fingerprint of the capability request. Expiry is delegated to
// Redis TTLs, so an expired entry is simply a miss and stale data is never
// served. Concurrent writers race benignly: last write wins.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/models"
)

// DefaultTTLs returns the per-capability freshness windows. Email is never
// cached: re-sending a message is a side effect, not a lookup.
func DefaultTTLs() map[models.Capability]time.Duration {
	return map[models.Capability]time.Duration{
		models.CapabilityStock:     60 * time.Second,
		models.CapabilityPortfolio: 120 * time.Second,
		models.CapabilityWebSearch: 300 * time.Second,
		models.CapabilityRetrieval: 6 * time.Hour,
		models.CapabilityEmail:     0,
	}
}

type Cache struct {
	client  *redis.Client
	ttls    map[models.Capability]time.Duration
	enabled bool
	logger  logger.Logger
}

func New(client *redis.Client, ttls map[models.Capability]time.Duration, log logger.Logger) *Cache {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	return &Cache{
		client:  client,
		ttls:    ttls,
		enabled: true,
		logger: log.With(map[string]interface{}{
			"component": "response-cache",
		}),
	}
}

// NewDisabled returns a cache that always misses and never stores.
func NewDisabled(log logger.Logger) *Cache {
	return &Cache{enabled: false, logger: log}
}

// Lookup returns the cached result for a capability request, or a miss.
// Cache backend failures degrade to a miss so a Redis outage never fails
// the request.
func (c *Cache) Lookup(ctx context.Context, capability models.Capability, params map[string]string) (*models.ProviderResult, bool) {
	if !c.enabled || c.ttls[capability] <= 0 {
		return nil, false
	}

	key := Fingerprint(capability, params)
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache lookup failed", map[string]interface{}{
				"capability": string(capability),
				"error":      err.Error(),
			})
			metrics.CacheLookups.WithLabelValues(string(capability), "error").Inc()
			return nil, false
		}
		metrics.CacheLookups.WithLabelValues(string(capability), "miss").Inc()
		return nil, false
	}

	var result models.ProviderResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", map[string]interface{}{
			"capability": string(capability),
			"error":      err.Error(),
		})
		_ = c.client.Del(ctx, key).Err()
		metrics.CacheLookups.WithLabelValues(string(capability), "error").Inc()
		return nil, false
	}

	result.Provenance = models.ProvenanceCache
	metrics.CacheLookups.WithLabelValues(string(capability), "hit").Inc()
	return &result, true
}

// Store writes a successful result under its fingerprint with the
// capability's TTL. Non-success results and zero-TTL capabilities are
// never stored.
func (c *Cache) Store(ctx context.Context, capability models.Capability, params map[string]string, result *models.ProviderResult) {
	if !c.enabled || result == nil || result.Status != models.ResultSuccess {
		return
	}
	ttl := c.ttls[capability]
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", map[string]interface{}{
			"capability": string(capability),
			"error":      err.Error(),
		})
		return
	}

	key := Fingerprint(capability, params)
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{
			"capability": string(capability),
			"error":      err.Error(),
		})
	}
}

// Clear removes every cached response. Used by tests and the admin surface.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Stats reports the number of live cache entries.
func (c *Cache) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"enabled": c.enabled, "size": 0}
	if !c.enabled {
		return stats, nil
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	size := 0
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	stats["size"] = size
	return stats, nil
}

// TTL returns the freshness window configured for a capability.
func (c *Cache) TTL(capability models.Capability) time.Duration {
	return c.ttls[capability]
}
