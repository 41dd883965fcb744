package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/runwiththewinners/bounties/database"
	"github.com/runwiththewinners/bounties/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock advances one second per reading so created_at orderings are stable.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: baseTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type testEnv struct {
	DB          *gorm.DB
	Clock       *testClock
	Gateway     *LedgerGateway
	Bounties    *BountyService
	Submissions *SubmissionService
	Leaderboard *LeaderboardService
	Transfers   *TransferService
	Approvals   *ApprovalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := newTestClock()
	log := zap.NewNop()

	env := &testEnv{DB: db, Clock: clock, Gateway: NewLedgerGateway()}
	env.Bounties = NewBountyService(db, log)
	env.Bounties.Now = clock.Now
	env.Submissions = NewSubmissionService(db, log, nil)
	env.Submissions.Now = clock.Now
	env.Leaderboard = NewLeaderboardService(db, log)
	env.Leaderboard.Now = clock.Now
	env.Transfers = NewTransferService(env.Gateway, "biz_org", "usd", log, nil)
	env.Approvals = NewApprovalService(db, env.Submissions, env.Bounties, env.Leaderboard, env.Transfers, log, nil)

	_, err := env.Leaderboard.EnsureStats(context.Background())
	require.NoError(t, err)
	return env
}

func (e *testEnv) createBounty(t *testing.T, title string, reward int64, maxClaims int) *models.Bounty {
	t.Helper()
	r := decimal.NewFromInt(reward)
	b, err := e.Bounties.Create(context.Background(), BountyInput{Title: &title, Reward: &r, MaxClaims: &maxClaims})
	require.NoError(t, err)
	return b
}

func (e *testEnv) submit(t *testing.T, bountyID string, m Member) *models.Submission {
	t.Helper()
	sub, err := e.Submissions.SubmitProof(context.Background(), m, bountyID, "https://example.com/proof", "")
	require.NoError(t, err)
	return sub
}

func member(id, name string) Member {
	return Member{ID: id, Name: name, Initials: initials(name)}
}

func initials(name string) string {
	if name == "" {
		return ""
	}
	return string([]rune(name)[0:1])
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func ptr[T any](v T) *T { return &v }
