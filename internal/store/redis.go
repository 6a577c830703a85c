package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the optional backend shared by RedisLocker and the Redis queue.
type Redis struct {
	Client *redis.Client
	addr   string
}

func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		ClientName:   "attendance",
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     16,
	})
	return &Redis{Client: client, addr: addr}
}

// Healthy pings the server once.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// WaitReady pings until the server answers, retrying up to attempts times
// with a fixed pause between tries.
func (r *Redis) WaitReady(ctx context.Context, attempts int, pause time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = r.Client.Ping(ctx).Err(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return fmt.Errorf("redis %s not ready after %d attempts: %w", r.addr, attempts, err)
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
