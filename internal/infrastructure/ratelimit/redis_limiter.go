package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/you/identitysvc/domain"
)

// RedisLimiter implements domain.RateLimiter as a sliding-window log shared by
// every replica pointing at the same Redis. Each key is a sorted set of events
// scored by the instant they leave the window.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter whose keys live under prefix
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source used to place and expire events
func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)

// Allow implements domain.RateLimiter. A refused event is not kept, so a
// client that keeps retrying is not pushed further back.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	k := l.prefix + key
	now := l.now()
	member := ulid.Make().String()

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", score(now))
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.Add(window).UnixMilli()), Member: member})
		card = pipe.ZCard(ctx, k)
		pipe.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit record failed: %w", err)
	}

	if card.Val() <= int64(limit) {
		return true, 0, nil
	}

	if err := l.client.ZRem(ctx, k, member).Err(); err != nil {
		return false, 0, fmt.Errorf("rate limit rollback failed: %w", err)
	}
	retry, err := l.retryAfter(ctx, k, now)
	if err != nil {
		return false, 0, err
	}
	return false, retry, nil
}

// Exceeded implements domain.RateLimiter
func (l *RedisLimiter) Exceeded(ctx context.Context, key string, limit int) (bool, time.Duration, error) {
	k := l.prefix + key
	now := l.now()

	count, err := l.client.ZCount(ctx, k, "("+score(now), "+inf").Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit lookup failed: %w", err)
	}
	if count < int64(limit) {
		return false, 0, nil
	}

	retry, err := l.retryAfter(ctx, k, now)
	if err != nil {
		return false, 0, err
	}
	return true, retry, nil
}

// retryAfter is the time until the oldest live event leaves the window
func (l *RedisLimiter) retryAfter(ctx context.Context, k string, now time.Time) (time.Duration, error) {
	oldest, err := l.client.ZRangeByScoreWithScores(ctx, k, &redis.ZRangeBy{
		Min:   "(" + score(now),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit window lookup failed: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}
	return time.UnixMilli(int64(oldest[0].Score)).Sub(now), nil
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
