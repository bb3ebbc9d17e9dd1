package billing

import (
	"context"
	"log/slog"
	"time"
)

// DedupTTL bounds how long the Redis fast path remembers a completed
// delivery. The provider stops retrying well within it.
const DedupTTL = 72 * time.Hour

// KeyStore is the subset of the cache the Redis ledger needs.
type KeyStore interface {
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// RedisLedger answers replays from Redis before they reach the durable
// ledger behind it. An unfinished claim only holds the Redis key for the
// lease; Complete extends it to DedupTTL.
type RedisLedger struct {
	// Lease overrides ClaimLease when positive.
	Lease time.Duration

	keys KeyStore
	next Ledger
}

func NewRedisLedger(keys KeyStore, next Ledger) *RedisLedger {
	return &RedisLedger{keys: keys, next: next}
}

func redisKey(key string) string { return "webhook:" + key }

func (l *RedisLedger) Claim(ctx context.Context, key, event string, payload []byte) (bool, error) {
	fresh, err := l.keys.SetOnce(ctx, redisKey(key), leaseOrDefault(l.Lease))
	if err != nil {
		// Redis is an optimisation; the durable ledger still decides.
		slog.Warn("webhook dedup cache unavailable", "key", key, "error", err)
		return l.next.Claim(ctx, key, event, payload)
	}
	if !fresh {
		return false, nil
	}

	claimed, err := l.next.Claim(ctx, key, event, payload)
	if err != nil {
		l.forget(ctx, key)
		return false, err
	}
	return claimed, nil
}

func (l *RedisLedger) Complete(ctx context.Context, key string) error {
	if err := l.next.Complete(ctx, key); err != nil {
		return err
	}
	if err := l.keys.Set(ctx, redisKey(key), DedupTTL); err != nil {
		slog.Warn("extending webhook dedup key", "key", key, "error", err)
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, key string) error {
	l.forget(ctx, key)
	return l.next.Release(ctx, key)
}

func (l *RedisLedger) forget(ctx context.Context, key string) {
	if err := l.keys.Forget(ctx, redisKey(key)); err != nil {
		slog.Warn("dropping webhook dedup key", "key", key, "error", err)
	}
}
