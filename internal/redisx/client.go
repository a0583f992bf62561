package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Options configures Connect.
type Options struct {
	Addr     string
	Password string
	DB       int
	// ConnectTimeout bounds the retried initial PING. Zero means one attempt.
	ConnectTimeout time.Duration
}

// Connect creates a client and waits until the server answers PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ping := func() error { return rdb.Ping(ctx).Err() }

	var err error
	if opts.ConnectTimeout <= 0 {
		err = ping()
	} else {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 200 * time.Millisecond
		bo.MaxElapsedTime = opts.ConnectTimeout
		err = backoff.Retry(ping, backoff.WithContext(bo, ctx))
	}
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redisx: connecting to %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// Exists reports whether key is present.
func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}
