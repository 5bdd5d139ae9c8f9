package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lock is a per-order advisory lock around reconciliation. It keeps
// concurrent webhook/sweep/manual invocations for the same order from
// doing duplicate gateway work; correctness does not depend on it. The
// conditional status update in the order store decides every race.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{Client: client, TTL: ttl}
}

func key(orderNumber string) string {
	return "recon_lock:" + orderNumber
}

// Acquire takes the lock for an order. The token identifies the holder so
// only the owner can release.
func (l *Lock) Acquire(ctx context.Context, orderNumber, token string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, key(orderNumber), token, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire recon lock for %s: %w", orderNumber, err)
	}
	return ok, nil
}

// Release frees the lock if this holder still owns it. Expired or stolen
// locks are left alone.
func (l *Lock) Release(ctx context.Context, orderNumber, token string) error {
	val, err := l.Client.Get(ctx, key(orderNumber)).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := l.Client.Del(ctx, key(orderNumber)).Result()
		return err
	}
	return nil
}
