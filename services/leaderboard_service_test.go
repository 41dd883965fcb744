package services

import (
	"context"
	"testing"

	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardService_EnsureStatsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Leaderboard.UpdateStats(ctx, StatsInput{TotalPaid: ptr(decimal.NewFromInt(5))})
	require.NoError(t, err)

	stats, err := env.Leaderboard.EnsureStats(ctx)
	require.NoError(t, err)
	requireMoney(t, "5", stats.TotalPaid)

	var rows int64
	require.NoError(t, env.DB.Model(&models.Stats{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestLeaderboardService_GetStatsWithoutRow(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.DB.Delete(&models.Stats{}, "id = ?", models.StatsID).Error)

	stats, err := env.Leaderboard.GetStats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.TotalPaid.IsZero())
	assert.Equal(t, 0, stats.CompletedCount)

	// the first approval creates the row
	require.NoError(t, env.Leaderboard.ApplyApproval(env.DB, decimal.RequireFromString("12.5")))
	stats, err = env.Leaderboard.GetStats(context.Background())
	require.NoError(t, err)
	requireMoney(t, "12.5", stats.TotalPaid)
	assert.Equal(t, 1, stats.CompletedCount)
}

func TestLeaderboardService_UpdateStatsOverrides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.Leaderboard.ApplyApproval(env.DB, decimal.NewFromInt(30)))

	stats, err := env.Leaderboard.UpdateStats(ctx, StatsInput{TotalPaid: ptr(decimal.NewFromInt(100))})
	require.NoError(t, err)
	requireMoney(t, "100", stats.TotalPaid)
	assert.Equal(t, 1, stats.CompletedCount, "unset fields keep their value")

	stats, err = env.Leaderboard.UpdateStats(ctx, StatsInput{CompletedCount: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CompletedCount)

	_, err = env.Leaderboard.UpdateStats(ctx, StatsInput{CompletedCount: ptr(-1)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "completedCount", verr.Field)
}

func TestLeaderboardService_RecordPayoutUpserts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.Leaderboard.RecordPayout(env.DB, "U1", "Uma", "U", decimal.NewFromInt(25))
	require.NoError(t, err)
	requireMoney(t, "25", first.Earned)

	again, err := env.Leaderboard.RecordPayout(env.DB, "U1", "Uma B", "UB", decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	requireMoney(t, "37.5", again.Earned)
	assert.Equal(t, "Uma B", again.Name)

	// same display name, different member
	other, err := env.Leaderboard.RecordPayout(env.DB, "U2", "Uma B", "UB", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	nameless, err := env.Leaderboard.RecordPayout(env.DB, "U3", " ", "", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "U3", nameless.Name)

	_, err = env.Leaderboard.RecordPayout(env.DB, "", "Nobody", "", decimal.NewFromInt(1))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	entries, err := env.Leaderboard.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "U1", *entries[0].UserID)
}

func TestLeaderboardService_ListOrderAndTop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, e := range []struct {
		name   string
		earned int64
	}{{"Cy", 10}, {"Ann", 10}, {"Bo", 50}, {"Di", 1}} {
		_, err := env.Leaderboard.CreateEntry(ctx, EntryInput{Name: ptr(e.name), Earned: ptr(decimal.NewFromInt(e.earned))})
		require.NoError(t, err)
	}

	entries, err := env.Leaderboard.List(ctx, 0)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"Bo", "Ann", "Cy", "Di"}, names)

	top, err := env.Leaderboard.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	top, err = env.Leaderboard.Top(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, 4)
}

func TestLeaderboardService_EntryCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Leaderboard.CreateEntry(ctx, EntryInput{Name: ptr("  ")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	entry, err := env.Leaderboard.CreateEntry(ctx, EntryInput{
		UserID:   ptr("U1"),
		Name:     ptr("Uma"),
		Initials: ptr("U"),
		Earned:   ptr(decimal.NewFromInt(5)),
	})
	require.NoError(t, err)

	_, err = env.Leaderboard.CreateEntry(ctx, EntryInput{UserID: ptr("U1"), Name: ptr("Impostor")})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	manual, err := env.Leaderboard.CreateEntry(ctx, EntryInput{Name: ptr("Walk-in")})
	require.NoError(t, err)
	assert.Nil(t, manual.UserID)

	_, err = env.Leaderboard.UpdateEntry(ctx, manual.ID, EntryInput{UserID: ptr("U1")})
	require.ErrorAs(t, err, &conflict)

	updated, err := env.Leaderboard.UpdateEntry(ctx, entry.ID, EntryInput{Earned: ptr(decimal.NewFromInt(80)), Name: ptr("Uma L")})
	require.NoError(t, err)
	requireMoney(t, "80", updated.Earned)
	assert.Equal(t, "Uma L", updated.Name)
	assert.Equal(t, "U", updated.Initials)

	unlinked, err := env.Leaderboard.UpdateEntry(ctx, entry.ID, EntryInput{UserID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, unlinked.UserID)

	_, err = env.Leaderboard.UpdateEntry(ctx, "missing", EntryInput{Name: ptr("x")})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	require.NoError(t, env.Leaderboard.DeleteEntry(ctx, entry.ID))
	require.NoError(t, env.Leaderboard.DeleteEntry(ctx, entry.ID))
	entries, err := env.Leaderboard.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLeaderboardService_Summary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createBounty(t, "A", 10, 0)
	p := env.createBounty(t, "P", 10, 0)
	x := env.createBounty(t, "X", 10, 0)
	_, err := env.Bounties.Pause(ctx, p.ID)
	require.NoError(t, err)
	_, err = env.Bounties.Update(ctx, x.ID, BountyInput{Status: ptr(models.BountyStatusCompleted)})
	require.NoError(t, err)

	sub := env.submit(t, a.ID, member("U1", "Uma"))
	env.submit(t, a.ID, member("U2", "Vic"))
	_, err = env.Approvals.Approve(ctx, sub.ID, "admin")
	require.NoError(t, err)

	summary, err := env.Leaderboard.Summary(ctx)
	require.NoError(t, err)
	requireMoney(t, "10", summary.TotalPaid)
	assert.Equal(t, 1, summary.CompletedCount)
	assert.Equal(t, int64(2), summary.ActiveBounties)
	assert.Equal(t, int64(1), summary.PendingSubmissions)
}

func TestLeaderboardService_Reconcile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.createBounty(t, "Paid", 20, 0)

	for _, m := range []Member{member("U1", "Uma"), member("U2", "Vic")} {
		sub := env.submit(t, b.ID, m)
		_, err := env.Approvals.Approve(ctx, sub.ID, "admin")
		require.NoError(t, err)
	}

	report, err := env.Leaderboard.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.InSync())

	// simulate drift: a lost stats write and a hand edit
	_, err = env.Leaderboard.UpdateStats(ctx, StatsInput{TotalPaid: ptr(decimal.NewFromInt(5)), CompletedCount: ptr(1)})
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&models.LeaderboardEntry{}).Where("user_id = ?", "U2").Update("earned", decimal.NewFromInt(3)).Error)

	report, err = env.Leaderboard.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.False(t, report.StatsInSync())
	requireMoney(t, "5", report.RecordedTotal)
	requireMoney(t, "40", report.ExpectedTotal)
	assert.Equal(t, 2, report.ExpectedCount)
	require.Len(t, report.Users, 1)
	assert.Equal(t, "U2", report.Users[0].UserID)
	requireMoney(t, "3", report.Users[0].Recorded)
	requireMoney(t, "20", report.Users[0].Expected)
	assert.False(t, report.Applied)

	report, err = env.Leaderboard.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.Applied)

	stats, err := env.Leaderboard.GetStats(ctx)
	require.NoError(t, err)
	requireMoney(t, "40", stats.TotalPaid)
	assert.Equal(t, 2, stats.CompletedCount)

	report, err = env.Leaderboard.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.InSync())
}

func TestLeaderboardService_ReconcileRestoresMissingEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.createBounty(t, "Paid", 15, 0)
	sub := env.submit(t, b.ID, member("U1", "Uma"))
	_, err := env.Approvals.Approve(ctx, sub.ID, "admin")
	require.NoError(t, err)

	entries, err := env.Leaderboard.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, env.Leaderboard.DeleteEntry(ctx, entries[0].ID))

	report, err := env.Leaderboard.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Users, 1)
	assert.True(t, report.Users[0].Recorded.IsZero())

	entries, err = env.Leaderboard.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Uma", entries[0].Name)
	requireMoney(t, "15", entries[0].Earned)
}
