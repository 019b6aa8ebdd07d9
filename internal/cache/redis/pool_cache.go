package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictx/marketd/internal/domain"
)

// poolTTL bounds staleness if an invalidation is ever lost.
const poolTTL = 5 * time.Minute

// PoolCache implements domain.PoolCache using Redis hashes. Each poll's pool
// snapshot lives at "pool:{pollID}" with one field per counter. The engine
// invalidates the key after every mutation, so a hit is at worst poolTTL
// stale.
type PoolCache struct {
	rdb *redis.Client
}

// NewPoolCache creates a PoolCache backed by the given Client.
func NewPoolCache(c *Client) *PoolCache {
	return &PoolCache{rdb: c.Underlying()}
}

func poolKey(pollID uint64) string {
	return "pool:" + strconv.FormatUint(pollID, 10)
}

// Set stores the pool snapshot for a poll.
func (pc *PoolCache) Set(ctx context.Context, pollID uint64, info domain.PoolInfo) error {
	key := poolKey(pollID)
	fields := map[string]interface{}{
		"yes_pool":  strconv.FormatInt(info.YesPool, 10),
		"no_pool":   strconv.FormatInt(info.NoPool, 10),
		"yes_count": strconv.FormatUint(uint64(info.YesCount), 10),
		"no_count":  strconv.FormatUint(uint64(info.NoCount), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, poolTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set pool %d: %w", pollID, err)
	}
	return nil
}

// Get retrieves the pool snapshot for a poll. It returns domain.ErrNotFound
// when the poll is not cached.
func (pc *PoolCache) Get(ctx context.Context, pollID uint64) (domain.PoolInfo, error) {
	vals, err := pc.rdb.HGetAll(ctx, poolKey(pollID)).Result()
	if err != nil {
		return domain.PoolInfo{}, fmt.Errorf("redis: get pool %d: %w", pollID, err)
	}
	if len(vals) == 0 {
		return domain.PoolInfo{}, domain.ErrNotFound
	}

	var info domain.PoolInfo
	if info.YesPool, err = strconv.ParseInt(vals["yes_pool"], 10, 64); err != nil {
		return domain.PoolInfo{}, fmt.Errorf("redis: parse pool %d yes_pool: %w", pollID, err)
	}
	if info.NoPool, err = strconv.ParseInt(vals["no_pool"], 10, 64); err != nil {
		return domain.PoolInfo{}, fmt.Errorf("redis: parse pool %d no_pool: %w", pollID, err)
	}
	yesCount, err := strconv.ParseUint(vals["yes_count"], 10, 32)
	if err != nil {
		return domain.PoolInfo{}, fmt.Errorf("redis: parse pool %d yes_count: %w", pollID, err)
	}
	noCount, err := strconv.ParseUint(vals["no_count"], 10, 32)
	if err != nil {
		return domain.PoolInfo{}, fmt.Errorf("redis: parse pool %d no_count: %w", pollID, err)
	}
	info.YesCount = uint32(yesCount)
	info.NoCount = uint32(noCount)
	return info, nil
}

// Invalidate drops the cached snapshot for a poll.
func (pc *PoolCache) Invalidate(ctx context.Context, pollID uint64) error {
	if err := pc.rdb.Del(ctx, poolKey(pollID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate pool %d: %w", pollID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
