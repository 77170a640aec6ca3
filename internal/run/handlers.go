package run

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the run endpoints. Every route requires
// authMiddleware; writeLimit, when non-nil, additionally guards the write
// endpoints.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, writeLimit fiber.Handler) {
	if writeLimit == nil {
		writeLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/", authMiddleware, writeLimit, func(c *fiber.Ctx) error {
		var req ManualRunRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		run, err := svc.SubmitManualRun(c.Context(), currentUser(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(run.Response())
	})

	r.Post("/gps", authMiddleware, writeLimit, func(c *fiber.Ctx) error {
		var req GPSRunRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		run, err := svc.SubmitGPSRun(c.Context(), currentUser(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(run.Response())
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		runs, err := svc.ListRuns(c.Context(), currentUser(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(Responses(runs))
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		id, err := runID(c)
		if err != nil {
			return err
		}
		run, err := svc.GetRun(c.Context(), currentUser(c), id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(run.Response())
	})

	r.Put("/:id", authMiddleware, writeLimit, func(c *fiber.Ctx) error {
		id, err := runID(c)
		if err != nil {
			return err
		}
		var req UpdateRunRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		run, err := svc.UpdateRun(c.Context(), currentUser(c), id, req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(run.Response())
	})

	r.Delete("/:id", authMiddleware, writeLimit, func(c *fiber.Ctx) error {
		id, err := runID(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteRun(c.Context(), currentUser(c), id); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func currentUser(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

func runID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return id, nil
}

// httpError maps service errors onto HTTP statuses. Anything that is not a
// known kind is a persistence fault and is passed through for the server's
// error handler to log and hide.
func httpError(err error) error {
	switch {
	case IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fmt.Errorf("runs: %w", err)
	}
}
