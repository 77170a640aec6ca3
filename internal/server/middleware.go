package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	authRateMax  = 10
	writeRateMax = 60
)

func corsMiddleware(origin string) fiber.Handler {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins: origin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	})
}

// rateLimitAuth limits credential endpoints per client IP.
func rateLimitAuth() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        authRateMax,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

// rateLimitWrite limits run writes per authenticated user, falling back to
// the client IP.
func rateLimitWrite() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        writeRateMax,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
				return "user:" + uid
			}
			return c.IP()
		},
		LimitReached: tooManyRequests,
	})
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
}
