package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// JWTMiddleware validates bearer access tokens and stores user_id and claims
// in locals. Websocket upgrades may pass the token as ?token= since browsers
// cannot set headers on them.
func JWTMiddleware(secret string, denylist *Denylist) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" && websocket.IsWebSocketUpgrade(c) {
			token = c.Query("token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := validateAccess(c.Context(), secretBytes, denylist, token)
		if err != nil {
			return tokenError(err)
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// tokenError reports denylist lookups failing as server faults; every other
// validation failure is the caller's.
func tokenError(err error) error {
	if errors.Is(err, errDenylistUnavailable) {
		return err
	}
	return fiber.NewError(fiber.StatusUnauthorized, err.Error())
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
