package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusDeclined SubmissionStatus = "declined"
)

func (s SubmissionStatus) Valid() bool {
	return s == SubmissionStatusPending || s.Terminal()
}

// Terminal statuses are final: a reviewed submission never changes again.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusDeclined
}

type UserTier string

const (
	UserTierPremium    UserTier = "premium"
	UserTierHighroller UserTier = "highroller"
)

func (t UserTier) Valid() bool {
	return t == UserTierPremium || t == UserTierHighroller
}

// Submission is a member's proof of completing a bounty.
// BountyID is a plain reference: the bounty may be deleted while its submissions remain.
type Submission struct {
	ID           string           `gorm:"primaryKey;size:36" json:"id"`
	BountyID     string           `gorm:"size:36;not null;index" json:"bountyId"`
	UserID       string           `gorm:"size:191;not null;index" json:"userId"`
	UserName     string           `json:"userName"`
	UserInitials string           `gorm:"size:8" json:"userInitials"`
	UserTier     *UserTier        `gorm:"size:16" json:"userTier"`
	ProofLink    *string          `gorm:"type:text" json:"proofLink"`
	ProofNotes   *string          `gorm:"type:text" json:"proofNotes"`
	Status       SubmissionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	Reward       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"reward"` // captured at submission time
	CreatedAt    time.Time        `gorm:"index" json:"createdAt"`
	ReviewedAt   *time.Time       `json:"reviewedAt"`
	ReviewedBy   *string          `gorm:"size:191" json:"reviewedBy,omitempty"`
	TransferID   *string          `gorm:"size:191" json:"transferId"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IdempotencyKey is the payout key for this submission. Every approval attempt
// reuses it, so the gateway moves money at most once.
func (s *Submission) IdempotencyKey() string {
	return IdempotencyKey(s.ID)
}

func IdempotencyKey(submissionID string) string {
	return "bounty-" + submissionID
}
