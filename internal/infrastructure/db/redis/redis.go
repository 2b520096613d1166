package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr     string
	DB       int
	Embedded bool
	Timeout  time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
// With Embedded set, an in-process miniredis server is started instead and
// the returned close function stops it together with the client.
func Connect(ctx context.Context, cfg Config) (*redis.Client, func() error, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	addr := cfg.Addr
	var embedded *miniredis.Miniredis
	if cfg.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		embedded = mr
		addr = mr.Addr()
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   cfg.DB,
	})

	closeFn := func() error {
		err := client.Close()
		if embedded != nil {
			embedded.Close()
		}
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, closeFn, nil
}
