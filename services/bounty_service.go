// services/bounty_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BountyInput carries create and update fields. Nil fields are left alone on update.
type BountyInput struct {
	Title            *string              `json:"title"`
	Description      *string              `json:"description"`
	Reward           *decimal.Decimal     `json:"reward"`
	Difficulty       *models.Difficulty   `json:"difficulty"`
	MaxClaims        *int                 `json:"maxClaims"`
	Claimed          *int                 `json:"claimed"`
	Expiry           models.OptionalDate  `json:"expiry"`
	Status           *models.BountyStatus `json:"status"`
	Requirements     *[]string            `json:"requirements"`
	RequirementIcons *[]string            `json:"requirementIcons"`
	Hot              *bool                `json:"hot"`
}

type BountyFilter struct {
	Status *models.BountyStatus
	Hot    *bool
}

type BountyService struct {
	DB  *gorm.DB
	Log *zap.Logger
	Now func() time.Time
}

func NewBountyService(db *gorm.DB, log *zap.Logger) *BountyService {
	return &BountyService{DB: db, Log: logger.OrNop(log), Now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (s *BountyService) Create(ctx context.Context, in BountyInput) (*models.Bounty, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title", "is required")
	}
	if in.Reward == nil {
		return nil, invalid("reward", "is required")
	}
	if err := validateBountyInput(in); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(*in.Title)
	bounty := models.Bounty{
		Title:            title,
		Slug:             slug.Make(title),
		Reward:           *in.Reward,
		Difficulty:       models.DifficultyEasy,
		Status:           models.BountyStatusActive,
		Requirements:     datatypes.JSONSlice[string]{},
		RequirementIcons: datatypes.JSONSlice[string]{},
		CreatedAt:        s.Now(),
	}
	if in.Description != nil {
		bounty.Description = *in.Description
	}
	if in.Difficulty != nil {
		bounty.Difficulty = *in.Difficulty
	}
	if in.MaxClaims != nil {
		bounty.MaxClaims = *in.MaxClaims
	}
	if in.Expiry.Set {
		bounty.Expiry = in.Expiry.Value
	}
	if in.Status != nil {
		if in.Status.Closed() {
			return nil, invalid("status", "new bounties start active or paused")
		}
		bounty.Status = *in.Status
	}
	if in.Requirements != nil {
		bounty.Requirements = *in.Requirements
	}
	if in.RequirementIcons != nil {
		bounty.RequirementIcons = *in.RequirementIcons
	}
	if in.Hot != nil {
		bounty.Hot = *in.Hot
	}

	if err := s.DB.WithContext(ctx).Create(&bounty).Error; err != nil {
		return nil, storeError(err, "create bounty")
	}
	s.Log.Info("bounty created",
		zap.String("bounty_id", bounty.ID),
		zap.String("title", bounty.Title),
		zap.String("reward", bounty.Reward.StringFixed(2)))
	return &bounty, nil
}

// List returns bounties newest first.
func (s *BountyService) List(ctx context.Context, filter BountyFilter) ([]models.Bounty, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Hot != nil {
		q = q.Where("hot = ?", *filter.Hot)
	}

	bounties := []models.Bounty{}
	if err := q.Find(&bounties).Error; err != nil {
		return nil, storeError(err, "list bounties")
	}
	return bounties, nil
}

func (s *BountyService) Get(ctx context.Context, id string) (*models.Bounty, error) {
	return findBounty(s.DB.WithContext(ctx), id)
}

func findBounty(tx *gorm.DB, id string) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := tx.First(&bounty, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "bounty", id)
	}
	return &bounty, nil
}

// Update changes only the supplied fields. Admins may set claimed above maxClaims.
func (s *BountyService) Update(ctx context.Context, id string, in BountyInput) (*models.Bounty, error) {
	if err := validateBountyInput(in); err != nil {
		return nil, err
	}

	var updated *models.Bounty
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bounty, err := findBounty(tx, id)
		if err != nil {
			return err
		}

		updates := bountyUpdates(in)
		if len(updates) > 0 {
			if err := tx.Model(bounty).Updates(updates).Error; err != nil {
				return storeError(err, "update bounty")
			}
		}

		updated, err = findBounty(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func bountyUpdates(in BountyInput) map[string]any {
	updates := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		updates["title"] = title
		updates["slug"] = slug.Make(title)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Reward != nil {
		updates["reward"] = *in.Reward
	}
	if in.Difficulty != nil {
		updates["difficulty"] = *in.Difficulty
	}
	if in.MaxClaims != nil {
		updates["max_claims"] = *in.MaxClaims
	}
	if in.Claimed != nil {
		updates["claimed"] = *in.Claimed
	}
	if in.Expiry.Set {
		if in.Expiry.Value == nil {
			updates["expiry"] = nil
		} else {
			updates["expiry"] = *in.Expiry.Value
		}
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.Requirements != nil {
		updates["requirements"] = datatypes.JSONSlice[string](*in.Requirements)
	}
	if in.RequirementIcons != nil {
		updates["requirement_icons"] = datatypes.JSONSlice[string](*in.RequirementIcons)
	}
	if in.Hot != nil {
		updates["hot"] = *in.Hot
	}
	return updates
}

func validateBountyInput(in BountyInput) error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if in.Reward != nil && in.Reward.IsNegative() {
		return invalid("reward", "must not be negative")
	}
	if in.Difficulty != nil && !in.Difficulty.Valid() {
		return invalid("difficulty", "must be one of easy, medium, hard")
	}
	if in.MaxClaims != nil && *in.MaxClaims < 0 {
		return invalid("maxClaims", "must not be negative")
	}
	if in.Claimed != nil && *in.Claimed < 0 {
		return invalid("claimed", "must not be negative")
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalid("status", "must be one of active, paused, expired, completed")
	}
	return nil
}

func (s *BountyService) Pause(ctx context.Context, id string) (*models.Bounty, error) {
	return s.toggle(ctx, id, models.BountyStatusPaused)
}

func (s *BountyService) Resume(ctx context.Context, id string) (*models.Bounty, error) {
	return s.toggle(ctx, id, models.BountyStatusActive)
}

// toggle moves between active and paused. Expired and completed bounties stay closed.
func (s *BountyService) toggle(ctx context.Context, id string, status models.BountyStatus) (*models.Bounty, error) {
	bounty, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bounty.Status.Closed() {
		return nil, &ConflictError{Resource: "bounty", ID: id, Status: string(bounty.Status)}
	}
	if bounty.Status == status {
		return bounty, nil
	}
	return s.Update(ctx, id, BountyInput{Status: &status})
}

// Delete hard-deletes a bounty. Deleting an unknown id is not an error.
// Submissions that reference the bounty are kept.
func (s *BountyService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Bounty{}, "id = ?", id)
	if res.Error != nil {
		return storeError(res.Error, "delete bounty")
	}
	if res.RowsAffected == 0 {
		s.Log.Debug("delete of unknown bounty ignored", zap.String("bounty_id", id))
		return nil
	}
	s.Log.Info("bounty deleted", zap.String("bounty_id", id))
	return nil
}

// IncrementClaimed counts one approval against a bounty inside tx. The count
// never passes maxClaims; a capped bounty that fills up becomes completed.
func (s *BountyService) IncrementClaimed(tx *gorm.DB, id string) error {
	res := tx.Model(&models.Bounty{}).
		Where("id = ? AND (max_claims = 0 OR claimed < max_claims)", id).
		Updates(map[string]any{"claimed": gorm.Expr("claimed + 1")})
	if res.Error != nil {
		return storeError(res.Error, "increment claimed")
	}
	if res.RowsAffected == 0 {
		s.Log.Warn("claim not counted: bounty missing or already full", zap.String("bounty_id", id))
		return nil
	}

	open := []string{string(models.BountyStatusActive), string(models.BountyStatusPaused)}
	err := tx.Model(&models.Bounty{}).
		Where("id = ? AND max_claims > 0 AND claimed >= max_claims AND status IN ?", id, open).
		Update("status", models.BountyStatusCompleted).Error
	return storeError(err, "complete bounty")
}

// ExpireOverdue closes open bounties whose expiry day is before today and
// returns how many it closed.
func (s *BountyService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	open := []string{string(models.BountyStatusActive), string(models.BountyStatusPaused)}
	res := s.DB.WithContext(ctx).Model(&models.Bounty{}).
		Where("status IN ? AND expiry IS NOT NULL AND expiry < ?", open, models.DateOf(now)).
		Update("status", models.BountyStatusExpired)
	if res.Error != nil {
		return 0, storeError(res.Error, "expire bounties")
	}
	return res.RowsAffected, nil
}
