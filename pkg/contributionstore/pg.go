// Package contributionstore persists contribution events in PostgreSQL.
package contributionstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/pgutil"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the contribution store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// InsertEvent inserts ev unless an event with the same natural key exists.
// It returns the persisted event and whether this call created it.
func (s *pgStore) InsertEvent(ctx context.Context, ev *contribution.Event) (*contribution.Event, bool, error) {
	dao := toEventDao(ev)

	res, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (user_id, external_id, kind) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, pgutil.WrapError("failed to insert contribution", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return toEvent(dao), true, nil
	}

	existing, err := s.getByNaturalKey(ctx, ev.UserID, ev.ExternalID, ev.Kind)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *pgStore) getByNaturalKey(ctx context.Context, userID, externalID string, kind contribution.Kind) (*contribution.Event, error) {
	dao := new(EventDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("ce.user_id = ?", userID).
		Where("ce.external_id = ?", externalID).
		Where("ce.kind = ?", string(kind)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contribution.ErrNotFound
		}
		return nil, pgutil.WrapError("failed to get contribution by natural key", err)
	}
	return toEvent(dao), nil
}

// GetEvent returns the event with id.
func (s *pgStore) GetEvent(ctx context.Context, id string) (*contribution.Event, error) {
	dao := new(EventDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("ce.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contribution.ErrNotFound
		}
		return nil, pgutil.WrapError("failed to get contribution", err)
	}
	return toEvent(dao), nil
}

// ListEvents returns the user's events newest first. limit <= 0 means no limit.
func (s *pgStore) ListEvents(ctx context.Context, userID string, limit int) ([]*contribution.Event, error) {
	var daos []EventDao
	q := s.db.NewSelect().
		Model(&daos).
		Where("ce.user_id = ?", userID).
		OrderExpr("ce.created_at DESC, ce.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, pgutil.WrapError("failed to list contributions", err)
	}
	return toEvents(daos), nil
}

// Aggregate groups matching events by user and kind.
func (s *pgStore) Aggregate(ctx context.Context, filter contribution.Filter) ([]contribution.AggregateRow, error) {
	var rows []contribution.AggregateRow

	q := s.db.NewSelect().
		Model((*EventDao)(nil)).
		ColumnExpr("ce.user_id AS user_id").
		ColumnExpr("ce.kind AS kind").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(ce.points), 0) AS points").
		ColumnExpr("MIN(ce.created_at) AS first_at").
		GroupExpr("ce.user_id, ce.kind").
		OrderExpr("ce.user_id, ce.kind")

	if filter.UserID != "" {
		q = q.Where("ce.user_id = ?", filter.UserID)
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		q = q.Where("ce.kind IN (?)", bun.In(kinds))
	}
	if filter.Since != nil {
		q = q.Where("ce.created_at >= ?", *filter.Since)
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, pgutil.WrapError("failed to aggregate contributions", err)
	}
	return rows, nil
}

// DailyHistory returns per-UTC-day totals for the user since the given time, oldest first.
func (s *pgStore) DailyHistory(ctx context.Context, userID string, since time.Time) ([]contribution.DailyCount, error) {
	var out []contribution.DailyCount
	err := s.db.NewSelect().
		Model((*EventDao)(nil)).
		ColumnExpr("to_char(ce.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date").
		ColumnExpr("COUNT(*) AS contributions").
		ColumnExpr("COALESCE(SUM(ce.points), 0) AS points").
		Where("ce.user_id = ?", userID).
		Where("ce.created_at >= ?", since).
		GroupExpr("1").
		OrderExpr("1").
		Scan(ctx, &out)
	if err != nil {
		return nil, pgutil.WrapError("failed to load contribution history", err)
	}
	return out, nil
}

// ListUnmirrored returns events without an on-chain hash, oldest first.
func (s *pgStore) ListUnmirrored(ctx context.Context, limit int) ([]*contribution.Event, error) {
	var daos []EventDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("ce.on_chain_tx_hash IS NULL").
		OrderExpr("ce.created_at ASC, ce.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to list unmirrored contributions", err)
	}
	return toEvents(daos), nil
}

// MarkMirrored sets the on-chain hash once. A second call fails with ErrAlreadyMirrored.
func (s *pgStore) MarkMirrored(ctx context.Context, id, txHash string) error {
	res, err := s.db.NewUpdate().
		Model((*EventDao)(nil)).
		Set("on_chain_tx_hash = ?", txHash).
		Where("id = ?", id).
		Where("on_chain_tx_hash IS NULL").
		Exec(ctx)
	if err != nil {
		return pgutil.WrapError("failed to mark contribution mirrored", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	if _, err := s.GetEvent(ctx, id); err != nil {
		return err
	}
	return contribution.ErrAlreadyMirrored
}

func toEvents(daos []EventDao) []*contribution.Event {
	out := make([]*contribution.Event, len(daos))
	for i := range daos {
		out[i] = toEvent(&daos[i])
	}
	return out
}
