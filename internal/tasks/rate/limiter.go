package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"actionhub/internal/actions"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActionLimiter is a sliding-window log per key kept in a redis sorted set.
// Denied attempts are logged too, so a caller hammering the endpoint stays
// blocked until it backs off for a full window.
type ActionLimiter struct {
	redis  redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewActionLimiter(client redis.Cmdable, prefix string) *ActionLimiter {
	return &ActionLimiter{redis: client, prefix: prefix, now: time.Now}
}

// Key is the sorted set holding key's attempts.
func (l *ActionLimiter) Key(key string) string {
	return fmt.Sprintf("%saction_rate_limit:%s", l.prefix, key)
}

func (l *ActionLimiter) Allow(ctx context.Context, key string, limit actions.RateLimit) (bool, error) {
	setKey := l.Key(key)
	now := l.now()
	windowStart := now.Add(-limit.Window).UnixMilli()

	pipe := l.redis.TxPipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, setKey, "-inf", strconv.FormatInt(windowStart, 10))

	// Count current window
	count := pipe.ZCard(ctx, setKey)

	// Members must be unique or same-millisecond attempts collapse into one.
	pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})

	// Set expiration
	pipe.Expire(ctx, setKey, limit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return count.Val() < int64(limit.Max), nil
}
