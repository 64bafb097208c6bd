// Package redis provides Redis-backed key material distribution and a jti deny-list.
package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/tokenkit/internal/config"
)

// NewClient creates a client for cfg
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
