// Package redis caches finished report payloads so repeated report runs
// skip the store. The cache is strictly optional: misses and errors both
// fall through to a direct read.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis report cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetReport(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = c.client.Set(ctx, "report:"+key, data, c.ttl).Err()
	if err != nil {
		logger.Warn("Failed to cache report", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set report cache: %w", err)
	}

	logger.Debug("Report cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) GetReport(ctx context.Context, key string, out any) (bool, error) {
	data, err := c.client.Get(ctx, "report:"+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to get report cache: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}

	logger.Debug("Report cache hit", zap.String("key", key))
	return true, nil
}

// Invalidate drops every cached report. Called after each load, since a
// rebuilt graph invalidates all prior reports.
func (c *Client) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "report:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Report cache invalidated")
	return nil
}
