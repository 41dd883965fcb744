// handlers/response.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/models"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		verr *services.ValidationError
		nerr *services.NotFoundError
		cerr *services.ConflictError
		perr *services.PayoutError
		berr *services.BookkeepingError
		gerr *services.ConfigurationError
		derr *services.DependencyError
	)

	switch {
	case errors.As(err, &berr):
		// Checked first: money moved, whatever the wrapped cause.
		// The admin has to reconcile or retry approve.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "update failed",
			"transferId": berr.TransferID,
			"details":    berr.Error(),
		})
	case errors.As(err, &perr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     "payout failed",
			"retryable": true,
			"details":   perr.Error(),
		})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation failed",
			"field":   verr.Field,
			"details": verr.Error(),
		})
	case errors.As(err, &nerr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nerr.Error()})
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"status":  cerr.Status,
			"details": cerr.Error(),
		})
	case errors.As(err, &gerr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "payout not configured",
			"details": gerr.Error(),
		})
	case errors.As(err, &derr):
		log.Error("dependency failure", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   derr.Dependency + " error",
			"details": derr.Error(),
		})
	default:
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}

func bountyStatusQuery(c *fiber.Ctx) (*models.BountyStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status := models.BountyStatus(raw)
	if !status.Valid() {
		return nil, &services.ValidationError{Field: "status", Message: "unknown bounty status " + strconv.Quote(raw)}
	}
	return &status, nil
}

func submissionStatusQuery(c *fiber.Ctx) (*models.SubmissionStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status := models.SubmissionStatus(raw)
	if !status.Valid() {
		return nil, &services.ValidationError{Field: "status", Message: "unknown submission status " + strconv.Quote(raw)}
	}
	return &status, nil
}

func boolQuery(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "must be true or false"}
	}
	return &v, nil
}
