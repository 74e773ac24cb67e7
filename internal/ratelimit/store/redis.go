package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"votebooth/internal/ratelimit"
)

const keyPrefix = "votebooth:ratelimit:"

// RedisStore keeps one sorted set per key, scored by request time in
// milliseconds, so every server replica shares the same window.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Allow adds the request optimistically and withdraws it when the window
// turns out to be full, so concurrent callers never both take the last slot.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	redisKey := keyPrefix + key
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(nowMs-window.Milliseconds(), 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMs), Member: member})
		count = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit window: %w", err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
	}

	n := int(count.Val())
	if n <= limit {
		return &ratelimit.Result{Allowed: true, Limit: limit, Remaining: limit - n, ResetAt: resetAt}, nil
	}

	if err := s.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return nil, fmt.Errorf("rate limit withdraw: %w", err)
	}
	return &ratelimit.Result{
		Allowed:    false,
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(resetAt, now),
	}, nil
}
