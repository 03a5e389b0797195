package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"spin-rewards-service/services"
	"spin-rewards-service/storage"
)

// respondError maps domain and storage errors onto HTTP statuses. Validation
// errors carry their message straight to the caller; anything unmapped is a
// 500 with a generic body.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNoPending):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrAlreadyExists),
		errors.Is(err, storage.ErrPendingExists),
		errors.Is(err, services.ErrAlreadyReferred):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoSpinsLeft),
		errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrMissingDetails):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporary conflict, please retry"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
