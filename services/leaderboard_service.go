// services/leaderboard_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsInput is an admin correction. Values replace the running totals.
type StatsInput struct {
	TotalPaid      *decimal.Decimal `json:"totalPaid"`
	CompletedCount *int             `json:"completedCount"`
}

type EntryInput struct {
	UserID   *string          `json:"userId"`
	Name     *string          `json:"name"`
	Initials *string          `json:"initials"`
	Earned   *decimal.Decimal `json:"earned"`
}

type LeaderboardService struct {
	DB  *gorm.DB
	Log *zap.Logger
	Now func() time.Time
}

func NewLeaderboardService(db *gorm.DB, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{DB: db, Log: logger.OrNop(log), Now: utcNow}
}

// EnsureStats makes sure the stats row exists (idempotent).
func (s *LeaderboardService) EnsureStats(ctx context.Context) (*models.Stats, error) {
	row := models.Stats{ID: models.StatsID}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, storeError(err, "create stats")
	}
	return s.GetStats(ctx)
}

func (s *LeaderboardService) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.DB.WithContext(ctx).First(&stats, "id = ?", models.StatsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Not created yet: report zero totals.
		return &models.Stats{ID: models.StatsID}, nil
	}
	if err != nil {
		return nil, storeError(err, "load stats")
	}
	return &stats, nil
}

// UpdateStats overrides the totals with absolute values.
func (s *LeaderboardService) UpdateStats(ctx context.Context, in StatsInput) (*models.Stats, error) {
	if in.TotalPaid != nil && in.TotalPaid.IsNegative() {
		return nil, invalid("totalPaid", "must not be negative")
	}
	if in.CompletedCount != nil && *in.CompletedCount < 0 {
		return nil, invalid("completedCount", "must not be negative")
	}
	if _, err := s.EnsureStats(ctx); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.TotalPaid != nil {
		updates["total_paid"] = *in.TotalPaid
	}
	if in.CompletedCount != nil {
		updates["completed_count"] = *in.CompletedCount
	}
	if len(updates) > 0 {
		err := s.DB.WithContext(ctx).Model(&models.Stats{ID: models.StatsID}).Updates(updates).Error
		if err != nil {
			return nil, storeError(err, "update stats")
		}
		s.Log.Info("stats overridden", zap.Any("updates", updates))
	}
	return s.GetStats(ctx)
}

// ApplyApproval adds one approved payout to the running totals inside tx.
func (s *LeaderboardService) ApplyApproval(tx *gorm.DB, amount decimal.Decimal) error {
	res := tx.Model(&models.Stats{}).
		Where("id = ?", models.StatsID).
		Updates(map[string]any{
			"total_paid":      gorm.Expr("total_paid + ?", amount),
			"completed_count": gorm.Expr("completed_count + 1"),
		})
	if res.Error != nil {
		return storeError(res.Error, "increment stats")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	row := models.Stats{ID: models.StatsID, TotalPaid: amount, CompletedCount: 1, UpdatedAt: s.Now()}
	return storeError(tx.Create(&row).Error, "create stats")
}

// RecordPayout adds amount to the payee's entry, creating it on first payout.
// Entries are matched by user id, so members who share a display name stay apart.
func (s *LeaderboardService) RecordPayout(tx *gorm.DB, userID, name, initials string, amount decimal.Decimal) (*models.LeaderboardEntry, error) {
	if userID == "" {
		return nil, invalid("userId", "is required")
	}
	if strings.TrimSpace(name) == "" {
		name = userID
	}
	now := s.Now()
	entry := models.LeaderboardEntry{
		UserID:    &userID,
		Name:      name,
		Initials:  initials,
		Earned:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"earned":     gorm.Expr("leaderboard.earned + ?", amount),
			"name":       name,
			"initials":   initials,
			"updated_at": now,
		}),
	}).Create(&entry).Error
	if err != nil {
		return nil, storeError(err, "record payout")
	}

	var saved models.LeaderboardEntry
	if err := tx.First(&saved, "user_id = ?", userID).Error; err != nil {
		return nil, storeError(err, "reload leaderboard entry")
	}
	return &saved, nil
}

// List returns entries by earnings, highest first. limit <= 0 returns all.
func (s *LeaderboardService) List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := s.DB.WithContext(ctx).Order("earned DESC").Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	entries := []models.LeaderboardEntry{}
	if err := q.Find(&entries).Error; err != nil {
		return nil, storeError(err, "list leaderboard")
	}
	return entries, nil
}

func (s *LeaderboardService) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	return s.List(ctx, n)
}

func (s *LeaderboardService) CreateEntry(ctx context.Context, in EntryInput) (*models.LeaderboardEntry, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if in.Earned != nil && in.Earned.IsNegative() {
		return nil, invalid("earned", "must not be negative")
	}

	entry := models.LeaderboardEntry{Name: strings.TrimSpace(*in.Name), CreatedAt: s.Now()}
	if in.UserID != nil && *in.UserID != "" {
		entry.UserID = in.UserID
	}
	if in.Initials != nil {
		entry.Initials = *in.Initials
	}
	if in.Earned != nil {
		entry.Earned = *in.Earned
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUserFree(tx, entry.UserID, ""); err != nil {
			return err
		}
		return storeError(tx.Create(&entry).Error, "create leaderboard entry")
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *LeaderboardService) UpdateEntry(ctx context.Context, id string, in EntryInput) (*models.LeaderboardEntry, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("name", "must not be empty")
	}
	if in.Earned != nil && in.Earned.IsNegative() {
		return nil, invalid("earned", "must not be negative")
	}

	var updated models.LeaderboardEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.LeaderboardEntry
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "leaderboard entry", id)
		}

		updates := map[string]any{}
		if in.UserID != nil {
			if *in.UserID == "" {
				updates["user_id"] = nil
			} else {
				if err := s.ensureUserFree(tx, in.UserID, id); err != nil {
					return err
				}
				updates["user_id"] = *in.UserID
			}
		}
		if in.Name != nil {
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Initials != nil {
			updates["initials"] = *in.Initials
		}
		if in.Earned != nil {
			updates["earned"] = *in.Earned
		}
		if len(updates) > 0 {
			if err := tx.Model(&entry).Updates(updates).Error; err != nil {
				return storeError(err, "update leaderboard entry")
			}
		}
		return storeError(tx.First(&updated, "id = ?", id).Error, "reload leaderboard entry")
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEntry removes an entry. Unknown ids are ignored.
func (s *LeaderboardService) DeleteEntry(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Delete(&models.LeaderboardEntry{}, "id = ?", id).Error
	return storeError(err, "delete leaderboard entry")
}

func (s *LeaderboardService) ensureUserFree(tx *gorm.DB, userID *string, exceptID string) error {
	if userID == nil || *userID == "" {
		return nil
	}
	q := tx.Model(&models.LeaderboardEntry{}).Where("user_id = ?", *userID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return storeError(err, "check leaderboard user")
	}
	if n > 0 {
		return &ConflictError{Resource: "leaderboard entry", Message: "user " + *userID + " already has a leaderboard entry"}
	}
	return nil
}

// Summary is the dashboard header.
func (s *LeaderboardService) Summary(ctx context.Context) (*models.Summary, error) {
	stats, err := s.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	summary := &models.Summary{TotalPaid: stats.TotalPaid, CompletedCount: stats.CompletedCount}

	db := s.DB.WithContext(ctx)
	open := []string{string(models.BountyStatusActive), string(models.BountyStatusPaused)}
	if err := db.Model(&models.Bounty{}).Where("status IN ?", open).Count(&summary.ActiveBounties).Error; err != nil {
		return nil, storeError(err, "count bounties")
	}
	if err := db.Model(&models.Submission{}).
		Where("status = ?", models.SubmissionStatusPending).
		Count(&summary.PendingSubmissions).Error; err != nil {
		return nil, storeError(err, "count submissions")
	}
	return summary, nil
}
