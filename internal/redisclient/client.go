package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks connectivity for readiness probes
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock takes lock:<lockKey> for ttl. The returned token must be
// passed to ReleaseLock; an empty token means the lock is held elsewhere.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock deletes the lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// GuestCartBackend persists guest cart payloads under guest_cart:<guestId>.
// Every save refreshes the TTL.
type GuestCartBackend struct {
	client *Client
	ttl    time.Duration
}

// NewGuestCartBackend returns a backend whose keys expire after ttl
func (c *Client) NewGuestCartBackend(ttl time.Duration) *GuestCartBackend {
	return &GuestCartBackend{client: c, ttl: ttl}
}

// Key returns the redis key for a guest
func (b *GuestCartBackend) Key(guestID string) string {
	return fmt.Sprintf("guest_cart:%s", guestID)
}

// Load returns nil, nil when the key is absent
func (b *GuestCartBackend) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := b.client.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}

func (b *GuestCartBackend) Save(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return b.client.rdb.Set(ctx, key, data, b.ttl).Err()
}

func (b *GuestCartBackend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return b.client.rdb.Del(ctx, key).Err()
}

const (
	guestLockTTL  = 5 * time.Second
	guestLockWait = 2 * time.Second
	guestLockPoll = 25 * time.Millisecond
)

// Lock holds lock:<key> so guest cart updates from different instances
// do not overwrite each other. It waits up to two seconds for the lock.
func (b *GuestCartBackend) Lock(key string) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), guestLockWait)
	defer cancel()

	for {
		token, err := b.client.AcquireLock(ctx, key, guestLockTTL)
		if err != nil {
			return nil, err
		}
		if token != "" {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = b.client.ReleaseLock(releaseCtx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(guestLockPoll):
		}
	}
}
