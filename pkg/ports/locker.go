package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes updates to one session across replicas that
// share a StateStore.
type DistributedLocker interface {
	// Lock blocks until the lock on key is held or ctx is done. The lock
	// expires after ttl if it is never released. The returned UnlockFunc
	// must be called once the update is saved.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
