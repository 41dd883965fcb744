package services

import (
	"context"

	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserDrift is a leaderboard entry whose earnings disagree with the user's
// approved submissions.
type UserDrift struct {
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Initials string          `json:"initials"`
	Recorded decimal.Decimal `json:"recorded"`
	Expected decimal.Decimal `json:"expected"`
}

type ReconcileReport struct {
	RecordedTotal decimal.Decimal `json:"recordedTotal"`
	ExpectedTotal decimal.Decimal `json:"expectedTotal"`
	RecordedCount int             `json:"recordedCount"`
	ExpectedCount int             `json:"expectedCount"`
	Users         []UserDrift     `json:"users"`
	Applied       bool            `json:"applied"`
}

func (r *ReconcileReport) StatsInSync() bool {
	return r.RecordedTotal.Equal(r.ExpectedTotal) && r.RecordedCount == r.ExpectedCount
}

func (r *ReconcileReport) InSync() bool {
	return r.StatsInSync() && len(r.Users) == 0
}

type approvedTotals struct {
	Total decimal.Decimal
	Count int
}

type approvedByUser struct {
	UserID       string
	UserName     string
	UserInitials string
	Earned       decimal.Decimal
}

// Reconcile compares the stored aggregates with the approved submissions they
// are derived from. With apply set, drifted aggregates are rewritten from the
// submissions. Leaderboard entries without a user id are left as they are.
func (s *LeaderboardService) Reconcile(ctx context.Context, apply bool) (*ReconcileReport, error) {
	report := &ReconcileReport{Users: []UserDrift{}}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var totals approvedTotals
		if err := tx.Model(&models.Submission{}).
			Select("COALESCE(SUM(reward), 0) AS total, COUNT(*) AS count").
			Where("status = ?", models.SubmissionStatusApproved).
			Scan(&totals).Error; err != nil {
			return storeError(err, "sum approved submissions")
		}
		report.ExpectedTotal = totals.Total
		report.ExpectedCount = totals.Count

		var stats models.Stats
		if err := tx.Limit(1).Find(&stats, "id = ?", models.StatsID).Error; err != nil {
			return storeError(err, "load stats")
		}
		report.RecordedTotal = stats.TotalPaid
		report.RecordedCount = stats.CompletedCount

		var perUser []approvedByUser
		if err := tx.Model(&models.Submission{}).
			Select("user_id, MAX(user_name) AS user_name, MAX(user_initials) AS user_initials, SUM(reward) AS earned").
			Where("status = ?", models.SubmissionStatusApproved).
			Group("user_id").
			Scan(&perUser).Error; err != nil {
			return storeError(err, "sum approved submissions by user")
		}

		var entries []models.LeaderboardEntry
		if err := tx.Where("user_id IS NOT NULL").Find(&entries).Error; err != nil {
			return storeError(err, "load leaderboard")
		}
		recorded := make(map[string]decimal.Decimal, len(entries))
		for _, e := range entries {
			recorded[*e.UserID] = e.Earned
		}

		for _, u := range perUser {
			if got, ok := recorded[u.UserID]; ok && got.Equal(u.Earned) {
				continue
			}
			report.Users = append(report.Users, UserDrift{
				UserID:   u.UserID,
				Name:     u.UserName,
				Initials: u.UserInitials,
				Recorded: recorded[u.UserID],
				Expected: u.Earned,
			})
		}

		if !apply || report.InSync() {
			return nil
		}
		return s.applyReconcile(tx, report)
	})
	if err != nil {
		return nil, err
	}

	if !report.InSync() {
		s.Log.Warn("aggregate drift detected",
			zap.String("recorded_total", report.RecordedTotal.String()),
			zap.String("expected_total", report.ExpectedTotal.String()),
			zap.Int("recorded_count", report.RecordedCount),
			zap.Int("expected_count", report.ExpectedCount),
			zap.Int("drifted_users", len(report.Users)),
			zap.Bool("applied", report.Applied))
	}
	return report, nil
}

func (s *LeaderboardService) applyReconcile(tx *gorm.DB, report *ReconcileReport) error {
	now := s.Now()
	stats := models.Stats{
		ID:             models.StatsID,
		TotalPaid:      report.ExpectedTotal,
		CompletedCount: report.ExpectedCount,
		UpdatedAt:      now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_paid", "completed_count", "updated_at"}),
	}).Create(&stats).Error; err != nil {
		return storeError(err, "rewrite stats")
	}

	for _, u := range report.Users {
		userID := u.UserID
		name := u.Name
		if name == "" {
			name = userID
		}
		entry := models.LeaderboardEntry{
			UserID:    &userID,
			Name:      name,
			Initials:  u.Initials,
			Earned:    u.Expected,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"earned", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return storeError(err, "rewrite leaderboard entry")
		}
	}
	report.Applied = true
	return nil
}
