package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/config"
	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a key or field does not exist.
var ErrNotFound = redis.Nil

// Client provides Redis operations with connection pooling
type Client struct {
	client *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		client: client,
	}, nil
}

// Get retrieves a value from Redis by key. Returns ErrNotFound when the key
// does not exist.
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// GetJSON retrieves and unmarshals JSON value from Redis
func (r *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set stores a value in Redis with optional expiration
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := r.client.Set(ctx, key, value, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals and stores a value as JSON in Redis
func (r *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.Set(ctx, key, data, expiration)
}

// Delete removes a key from Redis
func (r *Client) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// LPushTrim prepends a value to a list and trims the list to maxLen entries.
// Used for capped history logs.
func (r *Client) LPushTrim(ctx context.Context, key string, value interface{}, maxLen int64) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to lpush key %s: %w", key, err)
	}
	return nil
}

// LRange returns list entries in [start, stop].
func (r *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lrange key %s: %w", key, err)
	}
	return vals, nil
}

// SAdd adds members to a set
func (r *Client) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if err := r.client.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("failed to sadd key %s: %w", key, err)
	}
	return nil
}

// SMembers returns all members of a set
func (r *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to smembers key %s: %w", key, err)
	}
	return vals, nil
}

// Close closes the Redis connection
func (r *Client) Close() error {
	return r.client.Close()
}

// Ping checks Redis connection
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
