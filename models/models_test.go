package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestBounty_RequirementIcon(t *testing.T) {
	b := Bounty{
		Requirements:     datatypes.JSONSlice[string]{"Follow", "Share", "Post"},
		RequirementIcons: datatypes.JSONSlice[string]{"🐦", ""},
	}

	assert.Equal(t, "🐦", b.RequirementIcon(0))
	assert.Equal(t, DefaultRequirementIcon, b.RequirementIcon(1))
	assert.Equal(t, DefaultRequirementIcon, b.RequirementIcon(2))
	assert.Equal(t, DefaultRequirementIcon, b.RequirementIcon(-1))

	items := b.RequirementItems()
	require.Len(t, items, 3)
	assert.Equal(t, Requirement{Text: "Post", Icon: DefaultRequirementIcon}, items[2])
}

func TestBounty_ClaimsAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	today := DateOf(now)
	yesterday := NewDate(2026, 3, 9)

	tests := []struct {
		name      string
		bounty    Bounty
		full      bool
		remaining int
		expired   bool
	}{
		{name: "unlimited", bounty: Bounty{MaxClaims: 0, Claimed: 40}, remaining: -1},
		{name: "room left", bounty: Bounty{MaxClaims: 5, Claimed: 2, Expiry: &today}, remaining: 3},
		{name: "full", bounty: Bounty{MaxClaims: 2, Claimed: 2}, full: true, remaining: 0},
		{name: "past expiry", bounty: Bounty{Expiry: &yesterday}, remaining: -1, expired: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.full, tt.bounty.Full())
			assert.Equal(t, tt.remaining, tt.bounty.RemainingClaims())
			assert.Equal(t, tt.expired, tt.bounty.PastExpiry(now))
		})
	}
}

func TestBounty_JSON(t *testing.T) {
	expiry := NewDate(2026, 12, 31)
	b := Bounty{
		ID:           "b1",
		Title:        "Stream a session",
		Reward:       decimal.RequireFromString("25.50"),
		Difficulty:   DifficultyMedium,
		Expiry:       &expiry,
		Status:       BountyStatusActive,
		Requirements: datatypes.JSONSlice[string]{"Go live"},
	}

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 25.5, out["reward"])
	assert.Equal(t, "2026-12-31", out["expiry"])
	assert.Equal(t, "medium", out["difficulty"])
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", d.String())

	d, err = ParseDate("2026-05-01T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-02", d.String())

	_, err = ParseDate("May 1st")
	assert.Error(t, err)
}

func TestOptionalDate(t *testing.T) {
	var body struct {
		Expiry OptionalDate `json:"expiry"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.False(t, body.Expiry.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"expiry":null}`), &body))
	assert.True(t, body.Expiry.Set)
	assert.Nil(t, body.Expiry.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"expiry":"2027-01-15"}`), &body))
	require.NotNil(t, body.Expiry.Value)
	assert.Equal(t, "2027-01-15", body.Expiry.Value.String())
}

func TestSubmissionStatus(t *testing.T) {
	assert.False(t, SubmissionStatusPending.Terminal())
	assert.True(t, SubmissionStatusApproved.Terminal())
	assert.True(t, SubmissionStatusDeclined.Terminal())
	assert.False(t, SubmissionStatus("lost").Valid())
	assert.Equal(t, "bounty-abc", (&Submission{ID: "abc"}).IdempotencyKey())
}
