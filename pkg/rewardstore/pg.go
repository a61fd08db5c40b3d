// Package rewardstore persists reward grants in PostgreSQL.
package rewardstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/pgutil"
	"github.com/taskchain/taskchain/pkg/reward"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the reward store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) InsertGrant(ctx context.Context, g *reward.Grant) error {
	if _, err := s.db.NewInsert().Model(toGrantDao(g)).Exec(ctx); err != nil {
		return pgutil.WrapError("failed to insert reward grant", err)
	}
	return nil
}

func (s *pgStore) GetGrant(ctx context.Context, id string) (*reward.Grant, error) {
	dao := new(GrantDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("rg.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reward.ErrNotFound
		}
		return nil, pgutil.WrapError("failed to get reward grant", err)
	}
	return decodeGrant(dao)
}

// ListGrants returns all of the user's grants newest first.
func (s *pgStore) ListGrants(ctx context.Context, userID string) ([]*reward.Grant, error) {
	return s.list(ctx, "failed to list reward grants", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rg.user_id = ?", userID).OrderExpr("rg.created_at DESC, rg.id DESC")
	})
}

// ListUnclaimed returns the user's unclaimed grants oldest first.
func (s *pgStore) ListUnclaimed(ctx context.Context, userID string) ([]*reward.Grant, error) {
	return s.list(ctx, "failed to list unclaimed reward grants", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rg.user_id = ?", userID).
			Where("rg.claimed_at IS NULL").
			OrderExpr("rg.created_at ASC, rg.id ASC")
	})
}

// ListUnmirrored returns grants not yet added to the reward pool, oldest first.
func (s *pgStore) ListUnmirrored(ctx context.Context, limit int) ([]*reward.Grant, error) {
	return s.list(ctx, "failed to list unmirrored reward grants", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rg.grant_tx_hash IS NULL").
			OrderExpr("rg.created_at ASC, rg.id ASC").
			Limit(limit)
	})
}

func (s *pgStore) list(ctx context.Context, msg string, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]*reward.Grant, error) {
	var daos []GrantDao
	if err := apply(s.db.NewSelect().Model(&daos)).Scan(ctx); err != nil {
		return nil, pgutil.WrapError(msg, err)
	}
	grants, err := toGrants(daos)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return grants, nil
}

// MarkMirrored records the addReward hash and the grant's index in the user's
// on-chain reward list. An index already held by another of the user's grants
// violates idx_reward_grants_user_id_chain_index.
func (s *pgStore) MarkMirrored(ctx context.Context, id, txHash string, chainIndex int64) (*reward.Grant, error) {
	dao := new(GrantDao)
	err := s.db.NewUpdate().
		Model(dao).
		Set("grant_tx_hash = ?", txHash).
		Set("chain_index = ?", chainIndex).
		Where("rg.id = ?", id).
		Where("rg.grant_tx_hash IS NULL").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return decodeGrant(dao)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, pgutil.WrapError("failed to mark reward grant mirrored", err)
	}

	if _, err := s.GetGrant(ctx, id); err != nil {
		return nil, err
	}
	return nil, reward.ErrAlreadyMirrored
}

// MarkClaimed sets claimed_at and the claim hash only if the grant is unclaimed.
func (s *pgStore) MarkClaimed(ctx context.Context, id, txHash string, at time.Time) (*reward.Grant, error) {
	dao := new(GrantDao)
	err := s.db.NewUpdate().
		Model(dao).
		Set("claimed_at = ?", at).
		Set("claim_tx_hash = ?", txHash).
		Where("rg.id = ?", id).
		Where("rg.claimed_at IS NULL").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return decodeGrant(dao)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, pgutil.WrapError("failed to mark reward grant claimed", err)
	}

	if _, err := s.GetGrant(ctx, id); err != nil {
		return nil, err
	}
	return nil, reward.ErrAlreadyClaimed
}

func decodeGrant(dao *GrantDao) (*reward.Grant, error) {
	g, err := toGrant(dao)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reward grant %s: %w", dao.ID, err)
	}
	return g, nil
}
