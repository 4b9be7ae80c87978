// Package middleware provides request-scoped Fiber middleware: logging,
// metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitRule is a fixed-window limit on one named action.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed answers 503 while the counter store is unreachable instead
	// of letting the request through.
	FailClosed bool
}

// RateLimiter counts requests per caller in Redis. A limiter that does not
// enforce lets everything through without touching Redis.
type RateLimiter struct {
	rdb     *redis.Client
	enforce bool
}

func NewRateLimiter(rdb *redis.Client, enforce bool) *RateLimiter {
	return &RateLimiter{rdb: rdb, enforce: enforce}
}

var errNoRateLimitStore = errors.New("rate limit store not configured")

func rateLimitKey(rule, caller string) string {
	return fmt.Sprintf("rl:%s:%s", rule, caller)
}

// Allow records one request by caller against rule and reports whether it
// fits the window. The window starts at the first request.
func (l *RateLimiter) Allow(ctx context.Context, rule RateLimitRule, caller string) (bool, error) {
	if !l.enforce {
		return true, nil
	}
	if l.rdb == nil {
		return false, errNoRateLimitStore
	}

	key := rateLimitKey(rule.Name, caller)
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rule.Window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(rule.Limit), nil
}

// Handler enforces rule. Callers are keyed by c.Locals("userID") when set,
// otherwise by remote IP.
func (l *RateLimiter) Handler(rule RateLimitRule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			caller = fmt.Sprintf("user:%v", uid)
		}

		allowed, err := l.Allow(c.UserContext(), rule, caller)
		if err != nil {
			RedisErrors.WithLabelValues("rate_limit").Inc()
			if rule.FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("rule", rule.Name),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Service temporarily unavailable, please retry.",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}
