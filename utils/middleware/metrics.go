package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/braingentech/site-api/utils/cache"
)

// RequestCounter tracks per-method request counts in Redis so the metrics
// endpoint can export them. Counter failures never affect the request.
func RequestCounter(redisCache *cache.RedisCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "http_requests_" + strings.ToLower(c.Method())
		// fire and forget, the scrape reads whatever is there
		_, _ = redisCache.Increment(c.Context(), key)

		return c.Next()
	}
}
