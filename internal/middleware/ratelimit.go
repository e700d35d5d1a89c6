// Package middleware carries the fiber middleware of the query API.
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware limits requests per client IP. Profile queries
// are much heavier than a single forward search, so the API keeps a
// simple per-second and per-day budget per caller, tracked in redis so
// limits hold across replicas.
func RateLimitMiddleware(rdb *redis.Client, perSecond, perDay int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()
		now := time.Now()
		ip := c.IP()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyDay := fmt.Sprintf("rl:ip:%s:day:%s", ip, now.Format("2006-01-02"))

		if perSecond > 0 {
			count, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)

				if count > int64(perSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(perSecond))
					c.Set("X-RateLimit-Remaining-Second", "0")
					c.Set("Retry-After", "1")

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":      "rate_limit_exceeded",
						"message":    "Too many requests per second",
						"limit_type": "per_second",
					})
				}
				c.Set("X-RateLimit-Limit-Second", strconv.Itoa(perSecond))
				c.Set("X-RateLimit-Remaining-Second", strconv.FormatInt(int64(perSecond)-count, 10))
			}
		}

		if perDay > 0 {
			count, err := rdb.Incr(ctx, keyDay).Result()
			if err == nil {
				rdb.Expire(ctx, keyDay, 48*time.Hour)

				if count > int64(perDay) {
					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(perDay))
					c.Set("X-RateLimit-Remaining-Day", "0")

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":      "rate_limit_exceeded",
						"message":    "Daily request quota exhausted",
						"limit_type": "per_day",
					})
				}
				c.Set("X-RateLimit-Limit-Day", strconv.Itoa(perDay))
				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(perDay)-count, 10))
			}
		}

		return c.Next()
	}
}
