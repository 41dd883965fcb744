package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/middleware"
	"github.com/runwiththewinners/bounties/services"
	"github.com/runwiththewinners/bounties/utils"
	"go.uber.org/zap"
)

// Services bundles what the HTTP surface needs.
type Services struct {
	Bounties    *services.BountyService
	Submissions *services.SubmissionService
	Approvals   *services.ApprovalService
	Leaderboard *services.LeaderboardService
	Transfers   *services.TransferService
	Proofs      utils.ProofStore
	SubmitLimit fiber.Handler // nil disables member write limiting
}

// SetupRoutes mounts member routes at the root and admin routes under /admin.
// Gateway auth is applied by the caller.
func SetupRoutes(app *fiber.App, svc Services, log *zap.Logger) {
	submitLimit := svc.SubmitLimit
	if submitLimit == nil {
		submitLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	// 🔐 every route below needs the member context forwarded by the gateway
	member := app.Group("/", middleware.UserContextMiddleware(log))
	admin := member.Group("/admin", middleware.RequireAdmin())

	SetupBountyRoutes(member, admin, svc.Bounties, log)
	SetupSubmissionRoutes(member, admin, svc.Submissions, svc.Approvals, svc.Proofs, submitLimit, log)
	SetupLeaderboardRoutes(member, admin, svc.Leaderboard, log)
	SetupTransferRoutes(admin, svc.Transfers, log)
}
