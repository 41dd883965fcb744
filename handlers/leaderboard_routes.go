// handlers/leaderboard_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

func SetupLeaderboardRoutes(member, admin fiber.Router, leaderboardService *services.LeaderboardService, log *zap.Logger) {
	member.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 0)
		if limit < 0 {
			return writeError(c, log, &services.ValidationError{Field: "limit", Message: "must not be negative"})
		}
		entries, err := leaderboardService.List(c.UserContext(), limit)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(entries)
	})

	member.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := leaderboardService.GetStats(c.UserContext())
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(stats)
	})

	admin.Get("/summary", func(c *fiber.Ctx) error {
		summary, err := leaderboardService.Summary(c.UserContext())
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(summary)
	})

	admin.Patch("/stats", func(c *fiber.Ctx) error {
		var in services.StatsInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		stats, err := leaderboardService.UpdateStats(c.UserContext(), in)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(stats)
	})

	admin.Post("/stats/reconcile", func(c *fiber.Ctx) error {
		report, err := leaderboardService.Reconcile(c.UserContext(), c.QueryBool("apply", false))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(report)
	})

	admin.Post("/leaderboard", func(c *fiber.Ctx) error {
		var in services.EntryInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		entry, err := leaderboardService.CreateEntry(c.UserContext(), in)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	admin.Patch("/leaderboard/:id", func(c *fiber.Ctx) error {
		var in services.EntryInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		entry, err := leaderboardService.UpdateEntry(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(entry)
	})

	admin.Delete("/leaderboard/:id", func(c *fiber.Ctx) error {
		if err := leaderboardService.DeleteEntry(c.UserContext(), c.Params("id")); err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(fiber.Map{"message": "Leaderboard entry deleted successfully"})
	})
}
