package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/actscript/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire wraps Redis failures while taking a lock.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// compare-and-delete: a lease that expired and was taken over by another
// owner must survive the old owner's release.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// DefaultRetryInterval is how often a blocked Lock polls Redis.
const DefaultRetryInterval = 100 * time.Millisecond

// Locker is a ports.DistributedLocker built on SET NX PX leases.
type Locker struct {
	client backend.UniversalClient
	prefix string
	retry  time.Duration
}

type LockerOption func(*Locker)

// WithRetryInterval changes the polling interval of a blocked Lock.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

func NewLocker(client backend.UniversalClient, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{client: client, prefix: prefix, retry: DefaultRetryInterval}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) lockKey(key string) string {
	return l.prefix + "lock:" + key
}

// Lock blocks until the lease for key is taken or ctx ends. The lease expires
// by itself after ttl.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	k, token := l.lockKey(key), uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrLockAcquire, err)
		case ok:
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{k}, token).Err()
			}, nil
		}

		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
