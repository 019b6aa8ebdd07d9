package domain

import (
	"context"
	"time"
)

// PoolCache provides fast access to recent pool snapshots for the staking
// calculator endpoints. The ledger itself never trusts the cache.
type PoolCache interface {
	Set(ctx context.Context, pollID uint64, info PoolInfo) error
	// Get returns ErrNotFound when the pool is not cached.
	Get(ctx context.Context, pollID uint64) (PoolInfo, error)
	Invalidate(ctx context.Context, pollID uint64) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. Mutating ledger operations take
// a per-poll lock so concurrent callers against one poll serialize.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
