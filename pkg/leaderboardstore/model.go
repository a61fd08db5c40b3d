package leaderboardstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/leaderboard"
)

// SnapshotDao maps to the 'leaderboard_cache' table. One row per period.
type SnapshotDao struct {
	bun.BaseModel `bun:"table:leaderboard_cache,alias:lc"`
	Period        string              `bun:"period,pk,type:varchar(16)"`
	ComputedAt    time.Time           `bun:"computed_at,notnull"`
	ExpiresAt     time.Time           `bun:"expires_at,notnull"`
	Stats         leaderboard.Stats   `bun:"stats,type:jsonb,notnull"`
	Entries       []leaderboard.Entry `bun:"entries,type:jsonb,notnull"`
}

func toSnapshotDao(s *leaderboard.Snapshot) *SnapshotDao {
	entries := s.Entries
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return &SnapshotDao{
		Period:     string(s.Period),
		ComputedAt: s.ComputedAt,
		ExpiresAt:  s.ExpiresAt,
		Stats:      s.Stats,
		Entries:    entries,
	}
}

func toSnapshot(dao *SnapshotDao) *leaderboard.Snapshot {
	return &leaderboard.Snapshot{
		Period:     leaderboard.Period(dao.Period),
		ComputedAt: dao.ComputedAt.UTC(),
		ExpiresAt:  dao.ExpiresAt.UTC(),
		Stats:      dao.Stats,
		Entries:    dao.Entries,
	}
}
