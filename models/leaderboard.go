package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeaderboardEntry is one earner's running total. Payouts key entries by UserID;
// entries added by hand from the dashboard may have no UserID.
type LeaderboardEntry struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    *string         `gorm:"size:191;uniqueIndex" json:"userId"`
	Name      string          `gorm:"not null" json:"name"`
	Initials  string          `gorm:"size:8" json:"initials"`
	Earned    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"earned"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard"
}

func (e *LeaderboardEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// StatsID is the primary key of the single stats row.
const StatsID = 1

// Stats holds the running payout totals.
type Stats struct {
	ID             int             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	TotalPaid      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"totalPaid"`
	CompletedCount int             `gorm:"not null;default:0" json:"completedCount"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (Stats) TableName() string {
	return "stats"
}

// Summary is the dashboard header: running totals plus live counts.
type Summary struct {
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	CompletedCount     int             `json:"completedCount"`
	ActiveBounties     int64           `json:"activeBounties"`
	PendingSubmissions int64           `json:"pendingSubmissions"`
}
