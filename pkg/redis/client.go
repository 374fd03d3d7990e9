package redis

import (
	"context"
	"fmt"
	"time"

	"school-api/config"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// NewClient connects to redis and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%v: ping %s: %w", config.ModuleRedis, cfg.Address, err)
	}
	return rdb, nil
}
