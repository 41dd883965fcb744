// services/transfer_service.go
package services

import (
	"context"
	"strings"

	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/metrics"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PayoutRequest struct {
	SubmissionID string          `json:"submissionId"`
	UserID       string          `json:"userId"`
	Amount       decimal.Decimal `json:"amount"`
	BountyTitle  string          `json:"bountyTitle"`
}

type PayoutResult struct {
	TransferID  string          `json:"transferId"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

// TransferService sends bounty payouts from the organization balance.
type TransferService struct {
	Gateway  PayoutGateway
	OriginID string
	Currency string
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

func NewTransferService(gateway PayoutGateway, originID, currency string, log *zap.Logger, m *metrics.Metrics) *TransferService {
	if currency == "" {
		currency = "usd"
	}
	return &TransferService{Gateway: gateway, OriginID: originID, Currency: currency, Log: logger.OrNop(log), Metrics: m}
}

// SendPayout pays a submission's reward. The idempotency key is derived from
// the submission id, so repeating the call never pays twice.
func (s *TransferService) SendPayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalid("userId", "is required")
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount", "is required and must be positive")
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		return nil, invalid("submissionId", "is required")
	}
	if s.OriginID == "" {
		return nil, &ConfigurationError{Setting: "WHOP_COMPANY_ID"}
	}
	if s.Gateway == nil {
		return nil, &ConfigurationError{Setting: "payout gateway"}
	}

	title := strings.TrimSpace(req.BountyTitle)
	if title == "" {
		title = "Bounty reward"
	}
	transfer, err := s.Gateway.CreateTransfer(ctx, TransferRequest{
		Amount:         req.Amount,
		Currency:       s.Currency,
		OriginID:       s.OriginID,
		DestinationID:  req.UserID,
		IdempotencyKey: models.IdempotencyKey(req.SubmissionID),
		Notes:          "Bounty payout: " + title,
	})
	if err != nil {
		s.Metrics.PayoutFailed()
		s.Log.Error("payout failed",
			zap.String("submission_id", req.SubmissionID),
			zap.String("user_id", req.UserID),
			zap.String("amount", req.Amount.StringFixed(2)),
			zap.Error(err))
		return nil, &DependencyError{Dependency: "payout gateway", Err: err}
	}

	s.Metrics.PayoutSent()
	s.Log.Info("payout sent",
		zap.String("submission_id", req.SubmissionID),
		zap.String("transfer_id", transfer.ID),
		zap.String("amount", req.Amount.StringFixed(2)))
	return &PayoutResult{TransferID: transfer.ID, Amount: req.Amount, Destination: req.UserID}, nil
}
