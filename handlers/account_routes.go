// handlers/account_routes.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"spin-rewards-service/services"
)

// SetupAccountRoutes registers the user-facing API: account bootstrap,
// snapshot, spin and referral. Paths mirror the mini-app front end.
func SetupAccountRoutes(app *fiber.App, accounts *services.AccountService, spins *services.SpinService, referrals *services.ReferralService) {
	api := app.Group("/api")

	api.Post("/accounts", func(c *fiber.Ctx) error {
		var req struct {
			UserID      string `json:"user_id"`
			DisplayName string `json:"display_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		acc, created, err := accounts.CreateOrGetAccount(c.Context(), req.UserID, req.DisplayName)
		if err != nil {
			log.Printf("create_or_get_account failed for %s: %v", req.UserID, err)
			return respondError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(acc)
	})

	api.Get("/user/:id", func(c *fiber.Ctx) error {
		view, err := accounts.GetSnapshot(c.Context(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})

	api.Post("/spin/:id", func(c *fiber.Ctx) error {
		result, err := spins.Spin(c.Context(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	})

	api.Post("/referral", func(c *fiber.Ctx) error {
		var req struct {
			ReferrerCode string `json:"referrer_code"`
			UserID       string `json:"user_id"`
			DisplayName  string `json:"display_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ReferrerCode == "" || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referrer_code and user_id are required"})
		}

		referrerName, err := referrals.ApplyReferral(c.Context(), req.ReferrerCode, req.UserID, req.DisplayName)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"referrer_display_name": referrerName})
	})
}
