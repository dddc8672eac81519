package database

import (
	"context"
	"fmt"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// OpenRedis creates a redis client and pings it.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	log.Infof("[Redis] connected to %s (db=%d)", cfg.Addr, cfg.DB)
	return rdb, nil
}
