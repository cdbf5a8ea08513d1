package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache is a thin JSON cache over Redis.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key patterns.
const (
	NearbyRetailersKey = "retailers:nearby:%s"
	KnowledgeSearchKey = "knowledge:search:%s"
	SystemHealthKey    = "system:health"
)

// DefaultExpiration is the TTL for query result caches.
const DefaultExpiration = 5 * time.Minute

// CacheNearbyRetailers caches a geo query result under its parameter hash.
func (c *Cache) CacheNearbyRetailers(ctx context.Context, queryHash string, results []models.RetailerWithDistance, expiration time.Duration) error {
	key := fmt.Sprintf(NearbyRetailersKey, queryHash)

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal nearby retailers: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedNearbyRetailers retrieves a cached geo query result.
func (c *Cache) GetCachedNearbyRetailers(ctx context.Context, queryHash string) ([]models.RetailerWithDistance, error) {
	key := fmt.Sprintf(NearbyRetailersKey, queryHash)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var results []models.RetailerWithDistance
	err = json.Unmarshal([]byte(data), &results)
	return results, err
}

// CacheKnowledgeSearch caches hybrid search results for a query hash.
func (c *Cache) CacheKnowledgeSearch(ctx context.Context, queryHash string, results []models.QASearchResult, expiration time.Duration) error {
	key := fmt.Sprintf(KnowledgeSearchKey, queryHash)

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge search results: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedKnowledgeSearch retrieves cached hybrid search results.
func (c *Cache) GetCachedKnowledgeSearch(ctx context.Context, queryHash string) ([]models.QASearchResult, error) {
	key := fmt.Sprintf(KnowledgeSearchKey, queryHash)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var results []models.QASearchResult
	err = json.Unmarshal([]byte(data), &results)
	return results, err
}

// CacheSystemHealth caches the latest health snapshot.
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

// GetCachedSystemHealth retrieves the cached health snapshot.
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Result()
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal([]byte(data), &health)
	return health, err
}

// InvalidateKnowledgeCache drops all cached knowledge search results. Called
// after writes to the QA repository.
func (c *Cache) InvalidateKnowledgeCache(ctx context.Context) error {
	pattern := fmt.Sprintf(KnowledgeSearchKey, "*")

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).WithField("key", iter.Val()).Warn("Failed to delete cache key")
		}
	}
	return iter.Err()
}

// InvalidateNearbyCache drops all cached geo query results. Called after
// retailer writes.
func (c *Cache) InvalidateNearbyCache(ctx context.Context) error {
	pattern := fmt.Sprintf(NearbyRetailersKey, "*")

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).WithField("key", iter.Val()).Warn("Failed to delete cache key")
		}
	}
	return iter.Err()
}
