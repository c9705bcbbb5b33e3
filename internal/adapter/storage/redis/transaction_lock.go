package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-reconciler/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when the wait budget runs out while another holder owns the lock.
	ErrLockNotAcquired = ports.ErrLockNotAcquired
	// ErrLockNotHeld is returned by Release when the lock expired or changed owner.
	ErrLockNotHeld = errors.New("transaction lock no longer held")
)

// Deletes the key only if it still carries the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TransactionLock implements ports.TransactionLocker with SET NX PX and a
// token-checked release.
type TransactionLock struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewTransactionLock creates a lock whose keys expire after ttl. Acquire gives
// up after wait, or earlier if the caller's context ends.
func NewTransactionLock(client *goredis.Client, ttl, wait time.Duration) *TransactionLock {
	return &TransactionLock{
		client: client,
		prefix: "reconcile:lock:",
		ttl:    ttl,
		wait:   wait,
	}
}

// TryAcquire makes a single attempt. ok is false when someone else holds the lock.
func (l *TransactionLock) TryAcquire(ctx context.Context, key string) (token string, ok bool, err error) {
	token = uuid.NewString()
	res, err := l.client.SetArgs(ctx, l.prefix+key, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  l.ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return token, res == "OK", nil
}

// Acquire polls until the lock is held.
func (l *TransactionLock) Acquire(ctx context.Context, key string) (string, error) {
	var token string
	op := func() error {
		t, ok, err := l.TryAcquire(ctx, key)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		token = t
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 25 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = l.wait

	err := backoff.Retry(op, backoff.WithContext(eb, ctx))
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, ErrLockNotAcquired),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return "", fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
	default:
		return "", err
	}
}

// Release frees the lock if token still owns it.
func (l *TransactionLock) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, key)
	}
	return nil
}
