package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts daily attempts per key using Redis
type RateLimiter interface {
	// CheckDailyLimit reports whether key is still under limit today, and how much it used
	CheckDailyLimit(ctx context.Context, key string, limit int64) (bool, int64, error)

	// IncrementDailyCount increments today's counter for key
	IncrementDailyCount(ctx context.Context, key string) error

	// GetRemaining returns what is left of limit today; -1 means unlimited
	GetRemaining(ctx context.Context, key string, limit int64) (int64, error)

	// Close closes the Redis connection
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a Redis-based rate limiter over an established client
func NewRateLimiter(client *redis.Client, logger *slog.Logger) RateLimiter {
	return &redisRateLimiter{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// dailyKey generates the Redis key for a daily counter
// Format: rate:daily:{key}:{YYYY-MM-DD}
func dailyKey(key string, now time.Time) string {
	return fmt.Sprintf("rate:daily:%s:%s", key, now.UTC().Format("2006-01-02"))
}

func (r *redisRateLimiter) CheckDailyLimit(ctx context.Context, key string, limit int64) (bool, int64, error) {
	// If limit is 0 or negative, unlimited
	if limit <= 0 {
		return true, 0, nil
	}

	count, err := r.client.Get(ctx, dailyKey(key, r.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return true, 0, nil
	}
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to get daily count", "error", err, "key", key)
		// On error, allow the request but log it
		return true, 0, err
	}

	return count < limit, count, nil
}

func (r *redisRateLimiter) IncrementDailyCount(ctx context.Context, key string) error {
	now := r.now().UTC()
	redisKey := dailyKey(key, now)

	// Expire at the next UTC midnight
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, midnight.Sub(now))

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to increment daily count", "error", err, "key", key)
		return err
	}
	return nil
}

func (r *redisRateLimiter) GetRemaining(ctx context.Context, key string, limit int64) (int64, error) {
	if limit <= 0 {
		return -1, nil
	}

	count, err := r.client.Get(ctx, dailyKey(key, r.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return limit, nil
	}
	if err != nil {
		return 0, err
	}

	return max(limit-count, 0), nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - rate limiting is disabled")
	return &NoOpRateLimiter{logger: logger}
}

func (r *NoOpRateLimiter) CheckDailyLimit(ctx context.Context, key string, limit int64) (bool, int64, error) {
	return true, 0, nil
}

func (r *NoOpRateLimiter) IncrementDailyCount(ctx context.Context, key string) error {
	return nil
}

func (r *NoOpRateLimiter) GetRemaining(ctx context.Context, key string, limit int64) (int64, error) {
	return -1, nil
}

func (r *NoOpRateLimiter) Close() error {
	return nil
}

// DailyLimit counts requests per client IP under scope and answers 429 once limit is reached
func DailyLimit(limiter RateLimiter, scope string, limit int64, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		ctx := c.Request.Context()

		allowed, used, err := limiter.CheckDailyLimit(ctx, key, limit)
		if err != nil {
			logger.Warn("⚠️ [RateLimiter] Limit check failed, allowing request", "error", err)
		}
		if !allowed {
			logger.Warn("🚫 [RateLimiter] Daily limit reached", "scope", scope, "ip", c.ClientIP(), "used", used)
			c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "Request was throttled. Daily limit reached.",
			})
			return
		}

		remaining := max(limit-used-1, 0)
		if err := limiter.IncrementDailyCount(ctx, key); err != nil {
			logger.Warn("⚠️ [RateLimiter] Failed to count request", "error", err)
		} else if left, err := limiter.GetRemaining(ctx, key, limit); err == nil && left >= 0 {
			// concurrent requests may have counted in between
			remaining = left
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Next()
	}
}
