// handlers/bounty_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/models"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

// bountyView adds the derived requirement pairs and remaining claims.
type bountyView struct {
	*models.Bounty
	RequirementItems []models.Requirement `json:"requirementItems"`
	RemainingClaims  int                  `json:"remainingClaims"`
}

func viewBounty(b *models.Bounty) bountyView {
	return bountyView{Bounty: b, RequirementItems: b.RequirementItems(), RemainingClaims: b.RemainingClaims()}
}

func SetupBountyRoutes(member, admin fiber.Router, bountyService *services.BountyService, log *zap.Logger) {
	member.Get("/bounties", func(c *fiber.Ctx) error {
		status, err := bountyStatusQuery(c)
		if err != nil {
			return writeError(c, log, err)
		}
		hot, err := boolQuery(c, "hot")
		if err != nil {
			return writeError(c, log, err)
		}

		bounties, err := bountyService.List(c.UserContext(), services.BountyFilter{Status: status, Hot: hot})
		if err != nil {
			return writeError(c, log, err)
		}
		views := make([]bountyView, len(bounties))
		for i := range bounties {
			views[i] = viewBounty(&bounties[i])
		}
		return c.JSON(views)
	})

	member.Get("/bounties/:id", func(c *fiber.Ctx) error {
		bounty, err := bountyService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(viewBounty(bounty))
	})

	admin.Post("/bounties", func(c *fiber.Ctx) error {
		var in services.BountyInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		bounty, err := bountyService.Create(c.UserContext(), in)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(viewBounty(bounty))
	})

	admin.Patch("/bounties/:id", func(c *fiber.Ctx) error {
		var in services.BountyInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		bounty, err := bountyService.Update(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(viewBounty(bounty))
	})

	admin.Post("/bounties/:id/pause", func(c *fiber.Ctx) error {
		bounty, err := bountyService.Pause(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(viewBounty(bounty))
	})

	admin.Post("/bounties/:id/resume", func(c *fiber.Ctx) error {
		bounty, err := bountyService.Resume(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(viewBounty(bounty))
	})

	admin.Delete("/bounties/:id", func(c *fiber.Ctx) error {
		if err := bountyService.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(fiber.Map{"message": "Bounty deleted successfully"})
	})
}
