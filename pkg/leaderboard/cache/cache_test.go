package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/pgutil"
)

type snapshotCache interface {
	Get(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error)
	Put(ctx context.Context, snap *leaderboard.Snapshot) error
}

func testSnapshot(now time.Time, ttl time.Duration) *leaderboard.Snapshot {
	c := contribution.NewCounts("u1")
	c.Add(contribution.AggregateRow{UserID: "u1", Kind: contribution.KindPRMerged, Count: 1, Points: 15, FirstAt: now.Add(-time.Hour)})
	return leaderboard.Build(leaderboard.PeriodWeekly, map[string]*contribution.Counts{"u1": c}, now, ttl)
}

func exerciseCache(t *testing.T, c snapshotCache) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, leaderboard.PeriodWeekly)
	require.ErrorIs(t, err, leaderboard.ErrCacheMiss)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, c.Put(ctx, testSnapshot(now, time.Hour)))

	got, err := c.Get(ctx, leaderboard.PeriodWeekly)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "u1", got.Entries[0].UserID)
	assert.Equal(t, 1, got.Entries[0].ByKind[contribution.KindPRMerged])

	_, err = c.Get(ctx, leaderboard.PeriodMonthly)
	assert.ErrorIs(t, err, leaderboard.ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory(time.Minute))
}

func TestMemoryCache_ExpiredSnapshotIsNotStored(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	stale := testSnapshot(time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, m.Put(ctx, stale))

	_, err := m.Get(ctx, leaderboard.PeriodWeekly)
	assert.ErrorIs(t, err, leaderboard.ErrCacheMiss)
}

func TestRedisCache(t *testing.T) {
	pgutil.RequireDockerAccess(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	client := NewRedisClient(&config.RedisConfig{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	r := NewRedis(client)
	require.NoError(t, r.Ping(ctx))
	exerciseCache(t, r)
}
