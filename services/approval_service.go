// services/approval_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/metrics"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// UnknownBountyTitle is shown for submissions whose bounty was deleted.
const UnknownBountyTitle = "Unknown bounty"

type ApprovalResult struct {
	Submission *models.Submission `json:"submission"`
	TransferID string             `json:"transferId"`
	Message    string             `json:"message"`
}

// ApprovalService runs the review state machine: pending to approved (with a
// payout) or pending to declined.
type ApprovalService struct {
	DB          *gorm.DB
	Submissions *SubmissionService
	Bounties    *BountyService
	Leaderboard *LeaderboardService
	Transfers   *TransferService
	Log         *zap.Logger
	Metrics     *metrics.Metrics

	printer *message.Printer
	unit    currency.Unit
}

func NewApprovalService(
	db *gorm.DB,
	submissions *SubmissionService,
	bounties *BountyService,
	leaderboard *LeaderboardService,
	transfers *TransferService,
	log *zap.Logger,
	m *metrics.Metrics,
) *ApprovalService {
	unit := currency.USD
	if transfers != nil {
		if u, err := currency.ParseISO(strings.ToUpper(transfers.Currency)); err == nil {
			unit = u
		}
	}
	return &ApprovalService{
		DB:          db,
		Submissions: submissions,
		Bounties:    bounties,
		Leaderboard: leaderboard,
		Transfers:   transfers,
		Log:         logger.OrNop(log),
		Metrics:     m,
		printer:     message.NewPrinter(language.AmericanEnglish),
		unit:        unit,
	}
}

// Approve pays a pending submission and records the approval.
//
// The payout happens first. Its idempotency key is fixed per submission, so a
// retry after any failure cannot pay twice. The status change, stats, leaderboard
// and claim count then commit in one transaction guarded on the submission still
// being pending, so a concurrent approval cannot count the reward twice.
func (s *ApprovalService) Approve(ctx context.Context, id, reviewer string) (*ApprovalResult, error) {
	sub, err := s.Submissions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, &ConflictError{Resource: "submission", ID: id, Status: string(sub.Status)}
	}

	title := s.bountyTitle(ctx, sub.BountyID)
	payout, err := s.Transfers.SendPayout(ctx, PayoutRequest{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		Amount:       sub.Reward,
		BountyTitle:  title,
	})
	if err != nil {
		var verr *ValidationError
		var cerr *ConfigurationError
		if errors.As(err, &verr) || errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &PayoutError{SubmissionID: sub.ID, Err: err}
	}

	var approved *models.Submission
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		approved, err = s.Submissions.TransitionPending(tx, sub.ID, models.SubmissionStatusApproved, reviewer, &payout.TransferID)
		if err != nil {
			return err
		}
		if err := s.Leaderboard.ApplyApproval(tx, sub.Reward); err != nil {
			return err
		}
		if _, err := s.Leaderboard.RecordPayout(tx, sub.UserID, sub.UserName, sub.UserInitials, sub.Reward); err != nil {
			return err
		}
		return s.Bounties.IncrementClaimed(tx, sub.BountyID)
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) && conflict.Status == string(models.SubmissionStatusApproved) {
			s.Log.Info("approval lost race, nothing recorded twice",
				zap.String("submission_id", sub.ID),
				zap.String("transfer_id", payout.TransferID))
			return nil, err
		}
		// Any other failure, including a decline that landed while the payout
		// was in flight, leaves a transfer with no approval behind it.
		s.Metrics.BookkeepingFailed()
		s.Log.Error("payout sent but approval not recorded",
			zap.String("submission_id", sub.ID),
			zap.String("transfer_id", payout.TransferID),
			zap.String("amount", sub.Reward.StringFixed(2)),
			zap.Error(err))
		return nil, &BookkeepingError{SubmissionID: sub.ID, TransferID: payout.TransferID, Err: err}
	}

	s.Metrics.Reviewed(string(models.SubmissionStatusApproved))
	s.Metrics.Paid(sub.Reward)
	s.Log.Info("submission approved",
		zap.String("submission_id", sub.ID),
		zap.String("transfer_id", payout.TransferID),
		zap.String("reviewer", reviewer))

	return &ApprovalResult{
		Submission: approved,
		TransferID: payout.TransferID,
		Message:    s.confirmation(sub.Reward, displayName(sub), title),
	}, nil
}

// Decline rejects a pending submission. No money moves.
func (s *ApprovalService) Decline(ctx context.Context, id, reviewer string) (*models.Submission, error) {
	var declined *models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		declined, err = s.Submissions.TransitionPending(tx, id, models.SubmissionStatusDeclined, reviewer, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Reviewed(string(models.SubmissionStatusDeclined))
	s.Log.Info("submission declined", zap.String("submission_id", id), zap.String("reviewer", reviewer))
	return declined, nil
}

func (s *ApprovalService) bountyTitle(ctx context.Context, bountyID string) string {
	bounty, err := s.Bounties.Get(ctx, bountyID)
	if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			s.Log.Warn("bounty lookup failed", zap.String("bounty_id", bountyID), zap.Error(err))
		}
		return UnknownBountyTitle
	}
	return bounty.Title
}

func (s *ApprovalService) confirmation(amount decimal.Decimal, name, title string) string {
	value, _ := amount.Float64()
	return s.printer.Sprintf("Paid %v to %s for %q", currency.Symbol(s.unit.Amount(value)), name, title)
}

func displayName(sub *models.Submission) string {
	if sub.UserName != "" {
		return sub.UserName
	}
	return sub.UserID
}
