// Package cache owns the Redis connection used for session persistence.
// Session state lives here between turns; losing Redis loses sessions but
// never curriculum content, which is static and loaded from disk.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 5 * time.Second
	opTimeout    = 3 * time.Second
	pingTimeout  = 2 * time.Second
)

// Cache wraps the shared Redis client. The session store borrows Client
// directly; everything else goes through the wrapper.
type Cache struct {
	Client *redis.Client
}

// New connects to Redis and verifies the connection with a ping before
// returning. An unreachable Redis is a startup failure, not a degraded mode.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Cache{Client: client}, nil
}

func parseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout
	return opts, nil
}

// HealthCheck pings Redis with a short deadline, for readiness probes.
func (c *Cache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}

// Close releases the client and its connection pool.
func (c *Cache) Close() error {
	return c.Client.Close()
}
