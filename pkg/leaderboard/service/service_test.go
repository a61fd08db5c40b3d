package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/user"
)

var testNow = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(agg Aggregator, cache Cache, users mockUsers) (*leaderboardService, *clock) {
	clk := &clock{t: testNow}
	svc := NewService(agg, users, cache, time.Hour, zap.NewNop()).(*leaderboardService)
	svc.now = clk.now
	return svc, clk
}

func seed(agg *eventAggregator) {
	agg.add("alice", contribution.KindPRMerged, 15, testNow.Add(-2*24*time.Hour))
	agg.add("alice", contribution.KindCommitPushed, 2, testNow.Add(-24*time.Hour))
	agg.add("bob", contribution.KindIssueClosed, 10, testNow.Add(-3*24*time.Hour))
	agg.add("bob", contribution.KindPROpened, 5, testNow.Add(-20*24*time.Hour))
	agg.add("carol", contribution.KindPRMerged, 15, testNow.Add(-100*24*time.Hour))
	agg.add("carol", contribution.KindPRMerged, 15, testNow.Add(-90*24*time.Hour))
}

func TestGetLeaderboard_Windows(t *testing.T) {
	agg := &eventAggregator{}
	seed(agg)
	svc, _ := newTestService(agg, newMapCache(), mockUsers{"alice": {ID: "alice", GithubUsername: "alice-gh"}})
	ctx := context.Background()

	weekly, err := svc.GetLeaderboard(ctx, leaderboard.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, weekly.Entries, 2)
	assert.Equal(t, "alice", weekly.Entries[0].UserID)
	assert.Equal(t, "alice-gh", weekly.Entries[0].GithubUsername)
	assert.Equal(t, 17, weekly.Entries[0].TotalPoints)
	assert.Equal(t, "bob", weekly.Entries[1].UserID)
	assert.Equal(t, 10, weekly.Entries[1].TotalPoints)
	assert.Equal(t, testNow.Add(time.Hour), weekly.ExpiresAt)

	monthly, err := svc.GetLeaderboard(ctx, leaderboard.PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, monthly.Entries, 2)
	assert.Equal(t, 15, monthly.Entries[1].TotalPoints)

	allTime, err := svc.GetLeaderboard(ctx, leaderboard.PeriodAllTime)
	require.NoError(t, err)
	require.Len(t, allTime.Entries, 3)
	assert.Equal(t, "carol", allTime.Entries[0].UserID)
	assert.Equal(t, leaderboard.Stats{TotalContributors: 3, TotalPoints: 62, TotalContributions: 6}, allTime.Stats)

	for _, snap := range []*leaderboard.Snapshot{weekly, monthly, allTime} {
		for i := 0; i+1 < len(snap.Entries); i++ {
			assert.GreaterOrEqual(t, snap.Entries[i].TotalPoints, snap.Entries[i+1].TotalPoints)
		}
	}
}

func TestGetLeaderboard_ServesCacheUntilExpiry(t *testing.T) {
	agg := &eventAggregator{}
	seed(agg)
	cache := newMapCache()
	svc, clk := newTestService(agg, cache, mockUsers{})
	ctx := context.Background()

	first, err := svc.GetLeaderboard(ctx, leaderboard.PeriodAllTime)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.calls)

	agg.add("dave", contribution.KindPRMerged, 15, testNow)
	clk.t = testNow.Add(59 * time.Minute)
	cached, err := svc.GetLeaderboard(ctx, leaderboard.PeriodAllTime)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.calls)
	assert.Equal(t, first.ComputedAt, cached.ComputedAt)
	assert.Len(t, cached.Entries, 3)

	clk.t = testNow.Add(time.Hour)
	fresh, err := svc.GetLeaderboard(ctx, leaderboard.PeriodAllTime)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.calls)
	assert.Len(t, fresh.Entries, 4)
	assert.Equal(t, 2, cache.puts)
}

func TestGetLeaderboard_CacheFailuresDegrade(t *testing.T) {
	agg := &eventAggregator{}
	seed(agg)
	cache := newMapCache()
	cache.GetErr = apperrors.WrapUnavailable("redis down", errors.New("dial tcp"))
	cache.PutErr = errors.New("write failed")
	svc, _ := newTestService(agg, cache, mockUsers{})

	snap, err := svc.GetLeaderboard(context.Background(), leaderboard.PeriodWeekly)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)
}

func TestGetLeaderboard_StorageUnavailable(t *testing.T) {
	agg := &eventAggregator{err: apperrors.WrapUnavailable("failed to aggregate", errors.New("connection refused"))}
	svc, _ := newTestService(agg, newMapCache(), mockUsers{})

	_, err := svc.GetLeaderboard(context.Background(), leaderboard.PeriodWeekly)
	assert.True(t, apperrors.Is(err, apperrors.CategoryRecovering), "got %v", err)
}

func TestGetUserRank(t *testing.T) {
	agg := &eventAggregator{}
	seed(agg)
	svc, _ := newTestService(agg, newMapCache(), mockUsers{"bob": &user.User{ID: "bob"}})
	ctx := context.Background()

	res, err := svc.GetUserRank(ctx, "bob", leaderboard.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rank)
	require.NotNil(t, res.Entry)
	assert.Equal(t, 10, res.Entry.TotalPoints)

	res, err = svc.GetUserRank(ctx, "carol", leaderboard.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rank)
	assert.Nil(t, res.Entry)
}
