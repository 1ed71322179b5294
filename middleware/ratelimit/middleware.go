// Package ratelimit provides a Redis-backed sliding window rate
// limiter and a fiber middleware that applies it per client IP. It
// protects the credential endpoints from brute-force attempts.
package ratelimit

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// New creates a fiber middleware enforcing the configured limit per
// client IP and route path. Redis errors fail open: an unreachable
// limiter never blocks legitimate traffic.
func New(client *redis.Client, config Config) fiber.Handler {
	limiter := NewLimiter(client, config.KeyPrefix)

	return func(c *fiber.Ctx) error {
		key := c.IP() + ":" + c.Path()

		result, err := limiter.Allow(c.UserContext(), key, config.Limit, config.Window)
		if err != nil {
			log.Printf("[ratelimit] check failed, allowing request: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
		}

		return c.Next()
	}
}
