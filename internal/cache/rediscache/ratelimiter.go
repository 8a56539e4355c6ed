package rediscache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// alertWindowTTL outlives the minute bucket so a late INCR never lands on an expired key.
const alertWindowTTL = 70 * time.Second

// RateLimiter counts operator actions in fixed windows shared by every API instance.
type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// AlertWindowKey names the per-metro, per-minute bucket that at falls into.
func AlertWindowKey(metroCode string, at time.Time) string {
	return fmt.Sprintf("rl:alerts:%s:%s", strings.ToUpper(metroCode), at.UTC().Format("200601021504"))
}

// AllowAlert admits one more alert for metroCode in the minute of at.
func (rl *RateLimiter) AllowAlert(ctx context.Context, metroCode string, at time.Time, perMinute int64) (bool, int64, error) {
	return rl.Allow(ctx, AlertWindowKey(metroCode, at), perMinute, alertWindowTTL)
}

// Allow increments key and refreshes its TTL in one transaction.
// Returns (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrapf(err, "redis ratelimit %s", key)
	}
	n := incr.Val()
	return n <= limit, n, nil
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}
