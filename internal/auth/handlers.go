package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the auth endpoints. limit, when non-nil, guards the
// credential endpoints.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, limit fiber.Handler) {
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/register", limit, func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, tokens, err := svc.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrUsernameTaken) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fmt.Errorf("register: %w", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "registration successful",
			"user":    user,
			"tokens":  tokens,
		})
	})

	r.Post("/login", limit, func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, tokens, err := svc.Login(c.Context(), req)
		switch {
		case errors.Is(err, ErrMissingCredentials):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		case err != nil:
			return fmt.Errorf("login: %w", err)
		}
		return c.JSON(fiber.Map{
			"message": "login successful",
			"user":    user,
			"tokens":  tokens,
		})
	})

	r.Post("/refresh", limit, func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}

		resp, err := svc.Refresh(c.Context(), req.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrTokenInvalid) {
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			}
			return fmt.Errorf("refresh: %w", err)
		}
		return c.JSON(resp)
	})

	r.Post("/logout", authMiddleware, func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing claims")
		}
		if err := svc.Logout(c.Context(), claims); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		return c.JSON(fiber.Map{"message": "logout successful"})
	})

	r.Get("/status", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return c.JSON(fiber.Map{"is_authenticated": false})
		}
		claims, err := svc.ValidateAccessToken(c.Context(), token)
		if err != nil {
			return c.JSON(fiber.Map{"is_authenticated": false})
		}
		user, err := svc.GetUser(c.Context(), claims.UserID)
		if err != nil {
			return c.JSON(fiber.Map{"is_authenticated": false})
		}
		return c.JSON(fiber.Map{"is_authenticated": true, "user": user})
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.ValidateAccessToken(c.Context(), token)
		if err != nil {
			return tokenError(err)
		}
		return c.JSON(fiber.Map{"user_id": claims.UserID})
	})
}
