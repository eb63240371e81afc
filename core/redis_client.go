// Package core provides Redis client abstractions for the agent framework.
// This file implements a small wrapper around go-redis with database
// selection, key namespacing and connection checks. The Redis hook is its
// only consumer today.
//
// Namespacing:
// All keys are automatically prefixed with the namespace, e.g.
// "agentlaunch:events:<identity-id>".
//
// Usage:
//
//	client, err := NewRedisClient(RedisClientOptions{
//	    RedisURL:  "redis://localhost:6379",
//	    DB:        RedisDBEvents,
//	    Namespace: "agentlaunch:events",
//	})
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// RedisDBDefault is the database selected by a bare Redis URL
	RedisDBDefault = 0

	// RedisDBEvents holds hook event lists
	RedisDBEvents = 2

	redisMaxDB = 15
)

// RedisClient provides a simplified Redis interface with DB isolation
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client
type RedisClientOptions struct {
	RedisURL    string
	DB          int    // Redis DB number for isolation (0-15), negative keeps the URL's DB
	Namespace   string // Key namespace for organization
	Logger      Logger // Optional logger
	DialTimeout time.Duration
}

// NewRedisClient creates a new Redis client and verifies the connection
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	if opts.Logger == nil {
		opts.Logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		opts.Logger.Error("Failed to initialize Redis client", map[string]interface{}{
			"error":      "Redis URL is required",
			"error_type": "ErrMissingConfiguration",
		})
		return nil, fmt.Errorf("redis URL is required: %w", ErrMissingConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		opts.Logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":      err.Error(),
			"error_type": fmt.Sprintf("%T", err),
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	if opts.DB >= 0 && opts.DB <= redisMaxDB {
		redisOpt.DB = opts.DB
	}

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		opts.Logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":     err.Error(),
			"db":        redisOpt.DB,
			"namespace": opts.Namespace,
		})
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", redisOpt.DB, ErrConnectionFailed)
	}

	rc := NewRedisClientFromClient(client, opts.Namespace, opts.Logger)
	rc.logger.Info("Redis client connected", map[string]interface{}{
		"db":        redisOpt.DB,
		"namespace": opts.Namespace,
	})
	return rc, nil
}

// NewRedisClientFromClient wraps an already configured go-redis client
func NewRedisClientFromClient(client *redis.Client, namespace string, logger Logger) *RedisClient {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &RedisClient{
		client:    client,
		dbID:      client.Options().DB,
		namespace: namespace,
		logger:    logger,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	err := r.client.Close()
	if err != nil {
		r.logger.Error("Failed to close Redis client", map[string]interface{}{
			"error":     err.Error(),
			"db":        r.dbID,
			"namespace": r.namespace,
		})
	}
	return err
}

// GetDB returns the DB number being used
func (r *RedisClient) GetDB() int {
	return r.dbID
}

// GetNamespace returns the namespace being used
func (r *RedisClient) GetNamespace() string {
	return r.namespace
}

// formatKey formats a key with the namespace
func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

// RPush appends values to the tail of a list
func (r *RedisClient) RPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	return r.client.RPush(ctx, r.formatKey(key), values...).Result()
}

// LRange returns list elements between start and stop (inclusive)
func (r *RedisClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, r.formatKey(key), start, stop).Result()
}

// Expire sets a TTL on a key
func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.formatKey(key), ttl).Err()
}

// Del deletes keys
func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	formattedKeys := make([]string, len(keys))
	for i, key := range keys {
		formattedKeys[i] = r.formatKey(key)
	}
	return r.client.Del(ctx, formattedKeys...).Err()
}

// HealthCheck verifies Redis connectivity
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		r.logger.Error("Redis health check failed", map[string]interface{}{
			"error":     err.Error(),
			"db":        r.dbID,
			"namespace": r.namespace,
		})
	}
	return err
}
