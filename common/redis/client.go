package redis

import (
	"context"

	"github.com/tejasnaveen/Shakti/common/config"

	"github.com/go-redis/redis/v8"
)

// Client is the go-redis client used across Shakti.
type Client = redis.Client

// NewRedisClient creates a client; it does not dial until first use.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the client if it is non-nil.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
