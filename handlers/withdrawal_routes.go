// handlers/withdrawal_routes.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"spin-rewards-service/middleware"
	"spin-rewards-service/models"
	"spin-rewards-service/services"
)

// SetupWithdrawalRoutes registers the withdrawal surface. Resolution sits
// behind the gateway token plus the admin identity header; the service
// re-checks the identity, so a bad header cannot slip through.
func SetupWithdrawalRoutes(app *fiber.App, withdrawals *services.WithdrawalService) {
	api := app.Group("/api")

	api.Get("/withdraw/:id/eligibility", func(c *fiber.Ctx) error {
		ok, err := withdrawals.CheckEligibility(c.Context(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"eligible": ok})
	})

	api.Post("/withdraw/:id", func(c *fiber.Ctx) error {
		var req struct {
			PayoutDetails string `json:"payout_details"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		request, err := withdrawals.Submit(c.Context(), c.Params("id"), req.PayoutDetails)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"request_id":       request.ID,
			"requested_amount": request.RequestedAmount,
			"status":           request.Status,
		})
	})

	admin := app.Group("/api/admin", middleware.GatewayAuthMiddleware(), middleware.AdminContextMiddleware())

	admin.Post("/withdrawals/:id/resolve", func(c *fiber.Ctx) error {
		var req struct {
			Decision string `json:"decision"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		decision, ok := models.ParseWithdrawalDecision(req.Decision)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "decision must be confirm or reject"})
		}

		actor, _ := c.Locals("admin_id").(string)
		request, err := withdrawals.Resolve(c.Context(), actor, c.Params("id"), decision)
		if err != nil {
			log.Printf("resolve_withdrawal %s by %q failed: %v", c.Params("id"), actor, err)
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"request_id":  request.ID,
			"status":      request.Status,
			"resolved_at": request.ResolvedAt,
		})
	})
}
