package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

// SetupTransferRoutes exposes the raw payout call. Approve goes through the
// review workflow instead; this is for manual payouts and retries.
func SetupTransferRoutes(admin fiber.Router, transferService *services.TransferService, log *zap.Logger) {
	admin.Post("/transfers", func(c *fiber.Ctx) error {
		var req services.PayoutRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		result, err := transferService.SendPayout(c.UserContext(), req)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(result)
	})
}
