package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	// Money leaves the service as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// BountyStatus is the lifecycle state of a bounty
type BountyStatus string

const (
	BountyStatusActive    BountyStatus = "active"
	BountyStatusPaused    BountyStatus = "paused"
	BountyStatusExpired   BountyStatus = "expired"
	BountyStatusCompleted BountyStatus = "completed"
)

func (s BountyStatus) Valid() bool {
	switch s {
	case BountyStatusActive, BountyStatusPaused, BountyStatusExpired, BountyStatusCompleted:
		return true
	}
	return false
}

// Closed bounties never accept new submissions again.
func (s BountyStatus) Closed() bool {
	return s == BountyStatusExpired || s == BountyStatusCompleted
}

// DefaultRequirementIcon is shown for requirements without a matching icon.
const DefaultRequirementIcon = "•"

// Bounty is a task members can complete for a cash reward
type Bounty struct {
	ID               string                      `gorm:"primaryKey;size:36" json:"id"`
	Title            string                      `gorm:"not null" json:"title"`
	Slug             string                      `gorm:"size:191;index" json:"slug"`
	Description      string                      `gorm:"type:text" json:"description"`
	Reward           decimal.Decimal             `gorm:"type:numeric(12,2);not null" json:"reward"`
	Difficulty       Difficulty                  `gorm:"size:16;not null;default:'easy'" json:"difficulty"`
	MaxClaims        int                         `gorm:"not null;default:0" json:"maxClaims"` // 0 = unlimited
	Claimed          int                         `gorm:"not null;default:0" json:"claimed"`
	Expiry           *Date                       `json:"expiry"`
	Status           BountyStatus                `gorm:"size:16;not null;default:'active';index" json:"status"`
	Requirements     datatypes.JSONSlice[string] `json:"requirements"`
	RequirementIcons datatypes.JSONSlice[string] `json:"requirementIcons"`
	Hot              bool                        `gorm:"not null;default:false" json:"hot"`
	CreatedAt        time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func (b *Bounty) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.normalize()
	return nil
}

func (b *Bounty) AfterFind(tx *gorm.DB) error {
	b.normalize()
	return nil
}

func (b *Bounty) normalize() {
	if b.Requirements == nil {
		b.Requirements = datatypes.JSONSlice[string]{}
	}
	if b.RequirementIcons == nil {
		b.RequirementIcons = datatypes.JSONSlice[string]{}
	}
}

// RequirementIcon returns the icon paired with requirement i, falling back to
// DefaultRequirementIcon when the icon list is shorter.
func (b *Bounty) RequirementIcon(i int) string {
	if i >= 0 && i < len(b.RequirementIcons) && b.RequirementIcons[i] != "" {
		return b.RequirementIcons[i]
	}
	return DefaultRequirementIcon
}

type Requirement struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

func (b *Bounty) RequirementItems() []Requirement {
	items := make([]Requirement, len(b.Requirements))
	for i, text := range b.Requirements {
		items[i] = Requirement{Text: text, Icon: b.RequirementIcon(i)}
	}
	return items
}

// Full reports whether a capped bounty has used all its claims.
func (b *Bounty) Full() bool {
	return b.MaxClaims > 0 && b.Claimed >= b.MaxClaims
}

func (b *Bounty) PastExpiry(now time.Time) bool {
	return b.Expiry != nil && b.Expiry.Before(now)
}

// RemainingClaims returns -1 for unlimited bounties.
func (b *Bounty) RemainingClaims() int {
	if b.MaxClaims == 0 {
		return -1
	}
	if left := b.MaxClaims - b.Claimed; left > 0 {
		return left
	}
	return 0
}
