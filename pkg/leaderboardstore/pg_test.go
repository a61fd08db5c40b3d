package leaderboardstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/pgutil"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &SnapshotDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return ctx, NewStore(db)
}

func snapshotAt(now time.Time, points int) *leaderboard.Snapshot {
	c := contribution.NewCounts("u1")
	c.Add(contribution.AggregateRow{UserID: "u1", Kind: contribution.KindIssueClosed, Count: 1, Points: points, FirstAt: now})
	return leaderboard.Build(leaderboard.PeriodAllTime, map[string]*contribution.Counts{"u1": c}, now, time.Hour)
}

func TestLeaderboardPGStore_PutOverwrites(t *testing.T) {
	ctx, s := setupStore(t)

	if _, err := s.Get(ctx, leaderboard.PeriodAllTime); !errors.Is(err, leaderboard.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if err := s.Put(ctx, snapshotAt(now, 10)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	later := now.Add(time.Minute)
	if err := s.Put(ctx, snapshotAt(later, 20)); err != nil {
		t.Fatalf("Put(overwrite) failed: %v", err)
	}

	got, err := s.Get(ctx, leaderboard.PeriodAllTime)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !got.ComputedAt.Equal(later) {
		t.Fatalf("computed_at mismatch: got %v want %v", got.ComputedAt, later)
	}
	if got.Stats.TotalPoints != 20 || len(got.Entries) != 1 || got.Entries[0].TotalPoints != 20 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.Entries[0].ByKind[contribution.KindIssueClosed] != 1 {
		t.Fatalf("unexpected breakdown: %+v", got.Entries[0].ByKind)
	}

	pgutil.AssertRowCount(t, s.db, "leaderboard_cache", 1)
}
