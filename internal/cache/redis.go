// Package cache holds the Redis connection and its key layout. Redis is
// optional: revoked sessions fall back to the database and throttles
// fail open without it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogicum/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// errorCounter feeds failed commands into the redis error metric. A miss
// (redis.Nil) is not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		count(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		count("pipeline", err)
		return err
	}
}

func count(cmd string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(cmd).Inc()
	}
}

// Options parses addr, either a redis:// URL or a bare host:port.
func Options(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return opts, nil
}

// NewClient builds an instrumented client without contacting the server.
func NewClient(opts *redis.Options) *redis.Client {
	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})
	return c
}

// Connect dials addr and pings it. On any failure it returns a nil client
// and the reason, and the caller decides whether to run without Redis.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("REDIS_URL is empty")
	}
	opts, err := Options(addr)
	if err != nil {
		return nil, err
	}
	c := NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return c, nil
}
