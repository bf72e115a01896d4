package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/percorso-labs/percorso-api/internal/utils"
)

// RateLimit builds a named per-user limiter. Unauthenticated requests fall
// back to the client IP so the generator endpoint stays protected even when
// auth is misconfigured.
func RateLimit(name string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			subject := ""
			if userID, ok := c.Locals("user_id").(uint); ok && userID > 0 {
				subject = fmt.Sprintf("user:%d", userID)
			} else {
				subject = "ip:" + c.IP()
			}
			return name + ":" + subject
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry later")
		},
	})
}
