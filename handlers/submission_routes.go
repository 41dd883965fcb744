// handlers/submission_routes.go
package handlers

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/middleware"
	"github.com/runwiththewinners/bounties/services"
	"github.com/runwiththewinners/bounties/utils"
	"go.uber.org/zap"
)

// MaxProofSize caps proof uploads.
const MaxProofSize = 25 * 1024 * 1024

type submitRequest struct {
	BountyID   string `json:"bountyId"`
	ProofLink  string `json:"proofLink"`
	ProofNotes string `json:"proofNotes"`
}

func SetupSubmissionRoutes(
	member, admin fiber.Router,
	submissionService *services.SubmissionService,
	approvalService *services.ApprovalService,
	proofs utils.ProofStore,
	submitLimit fiber.Handler,
	log *zap.Logger,
) {
	// Members see their own submissions; admins may look at anyone's.
	member.Get("/submissions", func(c *fiber.Ctx) error {
		me, _ := middleware.CurrentMember(c)
		status, err := submissionStatusQuery(c)
		if err != nil {
			return writeError(c, log, err)
		}
		filter := services.SubmissionFilter{UserID: me.ID, Status: status, BountyID: c.Query("bountyId")}
		if userID := c.Query("userId"); userID != "" && me.IsAdmin() {
			filter.UserID = userID
		}

		subs, err := submissionService.List(c.UserContext(), filter)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(subs)
	})

	member.Post("/submissions", submitLimit, func(c *fiber.Ctx) error {
		me, _ := middleware.CurrentMember(c)
		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		sub, err := submissionService.SubmitProof(c.UserContext(), me, req.BountyID, req.ProofLink, req.ProofNotes)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	member.Post("/submissions/proof", submitLimit, func(c *fiber.Ctx) error {
		me, _ := middleware.CurrentMember(c)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}
		if fileHeader.Size > MaxProofSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "proof file too large"})
		}

		key, contentType, err := utils.ProofKey(me.ID, fileHeader.Filename)
		if err != nil {
			return writeError(c, log, &services.ValidationError{Field: "file", Message: err.Error()})
		}
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read file"})
		}
		defer file.Close()

		url, err := proofs.Save(c.UserContext(), key, contentType, file)
		if err != nil {
			log.Error("proof upload failed", zap.String("user_id", me.ID), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to store proof", "details": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	})

	admin.Get("/submissions", func(c *fiber.Ctx) error {
		status, err := submissionStatusQuery(c)
		if err != nil {
			return writeError(c, log, err)
		}
		subs, err := submissionService.List(c.UserContext(), services.SubmissionFilter{
			UserID:   c.Query("userId"),
			BountyID: c.Query("bountyId"),
			Status:   status,
		})
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(subs)
	})

	admin.Get("/submissions/stream", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		var ctx context.Context = c.Context()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			submissionService.StreamPending(ctx, w)
		})
		return nil
	})

	admin.Get("/submissions/:id", func(c *fiber.Ctx) error {
		sub, err := submissionService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(sub)
	})

	admin.Post("/submissions/:id/approve", func(c *fiber.Ctx) error {
		me, _ := middleware.CurrentMember(c)
		result, err := approvalService.Approve(c.UserContext(), c.Params("id"), me.ID)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(result)
	})

	admin.Post("/submissions/:id/decline", func(c *fiber.Ctx) error {
		me, _ := middleware.CurrentMember(c)
		sub, err := approvalService.Decline(c.UserContext(), c.Params("id"), me.ID)
		if err != nil {
			return writeError(c, log, err)
		}
		return c.JSON(sub)
	})
}
