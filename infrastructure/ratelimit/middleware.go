package ratelimit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// KeyFunc extracts the identity a rate-limit bucket is keyed on, typically
// the caller-id header already validated upstream.
type KeyFunc func(c *fiber.Ctx) string

// Middleware builds a fiber.Handler enforcing limit requests per window for
// the given prefix, keyed by keyFn. A caller that cannot be identified
// (keyFn returns "") is rate-limited by IP instead, so anonymous read
// traffic still gets a bucket.
func Middleware(limiter *Limiter, prefix string, limit int, window time.Duration, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if key == "" {
			key = c.IP()
		}

		result, err := limiter.Allow(c.Context(), prefix, key, limit, window)
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, allowing request through")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS")
		}

		return c.Next()
	}
}
