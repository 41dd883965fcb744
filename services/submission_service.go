// services/submission_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/metrics"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Member is the identity the platform gateway forwards with each request.
type Member struct {
	ID       string
	Name     string
	Initials string
	Tier     *models.UserTier
	Roles    []string
}

func (m Member) IsAdmin() bool {
	for _, r := range m.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// SubmissionInput is the raw create payload. Status is always forced to pending.
type SubmissionInput struct {
	BountyID     string           `json:"bountyId"`
	UserID       string           `json:"userId"`
	UserName     string           `json:"userName"`
	UserInitials string           `json:"userInitials"`
	UserTier     *models.UserTier `json:"userTier"`
	ProofLink    *string          `json:"proofLink"`
	ProofNotes   *string          `json:"proofNotes"`
	Reward       decimal.Decimal  `json:"reward"`
}

type SubmissionFilter struct {
	UserID   string
	BountyID string
	Status   *models.SubmissionStatus
}

type SubmissionService struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewSubmissionService(db *gorm.DB, log *zap.Logger, m *metrics.Metrics) *SubmissionService {
	return &SubmissionService{DB: db, Log: logger.OrNop(log), Metrics: m, Now: utcNow}
}

// SubmitProof records a member's proof against an open bounty, capturing the
// bounty's current reward.
func (s *SubmissionService) SubmitProof(ctx context.Context, member Member, bountyID, proofLink, proofNotes string) (*models.Submission, error) {
	if member.ID == "" {
		return nil, invalid("userId", "is required")
	}
	if bountyID == "" {
		return nil, invalid("bountyId", "is required")
	}
	link, notes := optionalText(proofLink), optionalText(proofNotes)
	if link == nil && notes == nil {
		return nil, invalid("proof", "a proof link or notes are required")
	}
	if member.Tier != nil && !member.Tier.Valid() {
		member.Tier = nil
	}

	var created *models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bounty, err := findBounty(tx, bountyID)
		if err != nil {
			return err
		}
		now := s.Now()
		switch {
		case bounty.Status != models.BountyStatusActive:
			return invalid("bountyId", "bounty is %s and not accepting submissions", bounty.Status)
		case bounty.PastExpiry(now):
			return invalid("bountyId", "bounty expired on %s", bounty.Expiry.String())
		case bounty.Full():
			return invalid("bountyId", "bounty has no claims left")
		}

		var pending int64
		if err := tx.Model(&models.Submission{}).
			Where("bounty_id = ? AND user_id = ? AND status = ?", bountyID, member.ID, models.SubmissionStatusPending).
			Count(&pending).Error; err != nil {
			return storeError(err, "check pending submissions")
		}
		if pending > 0 {
			return &ConflictError{
				Resource: "submission",
				Message:  "you already have a submission awaiting review for this bounty",
			}
		}

		created, err = s.create(tx, SubmissionInput{
			BountyID:     bounty.ID,
			UserID:       member.ID,
			UserName:     member.Name,
			UserInitials: member.Initials,
			UserTier:     member.Tier,
			ProofLink:    link,
			ProofNotes:   notes,
			Reward:       bounty.Reward,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Submitted()
	s.Log.Info("proof submitted",
		zap.String("submission_id", created.ID),
		zap.String("bounty_id", created.BountyID),
		zap.String("user_id", created.UserID))
	return created, nil
}

// Create inserts a pending submission with the caller-supplied reward. Members
// go through SubmitProof; this is the repository-level create and has no route.
func (s *SubmissionService) Create(ctx context.Context, in SubmissionInput) (*models.Submission, error) {
	if in.BountyID == "" {
		return nil, invalid("bountyId", "is required")
	}
	if in.UserID == "" {
		return nil, invalid("userId", "is required")
	}
	if in.Reward.IsNegative() {
		return nil, invalid("reward", "must not be negative")
	}
	sub, err := s.create(s.DB.WithContext(ctx), in)
	if err != nil {
		return nil, err
	}
	s.Metrics.Submitted()
	return sub, nil
}

func (s *SubmissionService) create(tx *gorm.DB, in SubmissionInput) (*models.Submission, error) {
	sub := models.Submission{
		BountyID:     in.BountyID,
		UserID:       in.UserID,
		UserName:     in.UserName,
		UserInitials: in.UserInitials,
		UserTier:     in.UserTier,
		ProofLink:    in.ProofLink,
		ProofNotes:   in.ProofNotes,
		Status:       models.SubmissionStatusPending,
		Reward:       in.Reward,
		CreatedAt:    s.Now(),
	}
	if err := tx.Create(&sub).Error; err != nil {
		return nil, storeError(err, "create submission")
	}
	return &sub, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	return findSubmission(s.DB.WithContext(ctx), id)
}

func findSubmission(tx *gorm.DB, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := tx.First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "submission", id)
	}
	return &sub, nil
}

// List returns submissions newest first.
func (s *SubmissionService) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.BountyID != "" {
		q = q.Where("bounty_id = ?", filter.BountyID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	subs := []models.Submission{}
	if err := q.Find(&subs).Error; err != nil {
		return nil, storeError(err, "list submissions")
	}
	return subs, nil
}

// ListSince returns submissions in status created strictly after the cursor, oldest first.
func (s *SubmissionService) ListSince(ctx context.Context, status models.SubmissionStatus, after time.Time) ([]models.Submission, error) {
	subs := []models.Submission{}
	err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at > ?", status, after).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, storeError(err, "list new submissions")
	}
	return subs, nil
}

// SetStatus writes a status unconditionally. reviewedAt is stamped for terminal
// statuses and cleared for pending; transferId is kept only for approved.
// It is a repository-level operation for maintenance and has no route.
// Approve and decline go through TransitionPending instead, which refuses to
// touch a decided submission.
func (s *SubmissionService) SetStatus(ctx context.Context, id string, status models.SubmissionStatus, transferID *string) (*models.Submission, error) {
	if !status.Valid() {
		return nil, invalid("status", "must be one of pending, approved, declined")
	}

	var updated *models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := findSubmission(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]any{"status": status, "reviewed_at": nil}
		if status.Terminal() {
			updates["reviewed_at"] = s.Now()
		}
		switch {
		case status != models.SubmissionStatusApproved:
			updates["transfer_id"] = nil
		case transferID != nil:
			updates["transfer_id"] = *transferID
		}
		if err := tx.Model(sub).Updates(updates).Error; err != nil {
			return storeError(err, "set submission status")
		}

		updated, err = findSubmission(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionPending moves a submission out of pending, but only if it is still
// pending when the row is written. A lost race yields ConflictError.
func (s *SubmissionService) TransitionPending(tx *gorm.DB, id string, status models.SubmissionStatus, reviewer string, transferID *string) (*models.Submission, error) {
	if !status.Terminal() {
		return nil, invalid("status", "must be approved or declined")
	}
	if status == models.SubmissionStatusApproved && (transferID == nil || *transferID == "") {
		return nil, invalid("transferId", "is required to approve")
	}
	if status == models.SubmissionStatusDeclined {
		transferID = nil
	}

	updates := map[string]any{
		"status":      status,
		"reviewed_at": s.Now(),
		"reviewed_by": optionalText(reviewer),
		"transfer_id": transferID,
	}
	res := tx.Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, storeError(res.Error, "transition submission")
	}
	if res.RowsAffected == 0 {
		current, err := findSubmission(tx, id)
		if err != nil {
			return nil, err
		}
		return nil, &ConflictError{Resource: "submission", ID: id, Status: string(current.Status)}
	}
	return findSubmission(tx, id)
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
