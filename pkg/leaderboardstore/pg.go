// Package leaderboardstore keeps leaderboard snapshots in PostgreSQL.
package leaderboardstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/pgutil"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the leaderboard cache
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// Get returns the stored snapshot for period, fresh or not.
func (s *pgStore) Get(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	dao := new(SnapshotDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("lc.period = ?", string(period)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, leaderboard.ErrCacheMiss
		}
		return nil, pgutil.WrapError("failed to get leaderboard snapshot", err)
	}
	return toSnapshot(dao), nil
}

// Put overwrites the snapshot for its period. The last writer wins.
func (s *pgStore) Put(ctx context.Context, snap *leaderboard.Snapshot) error {
	_, err := s.db.NewInsert().
		Model(toSnapshotDao(snap)).
		On("CONFLICT (period) DO UPDATE").
		Set("computed_at = EXCLUDED.computed_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("stats = EXCLUDED.stats").
		Set("entries = EXCLUDED.entries").
		Exec(ctx)
	if err != nil {
		return pgutil.WrapError("failed to save leaderboard snapshot", err)
	}
	return nil
}
