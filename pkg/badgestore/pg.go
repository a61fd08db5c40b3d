// Package badgestore persists badge mint records in PostgreSQL.
package badgestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/pgutil"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the badge mint store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// CreatePendingMint inserts m unless the user already has a record for the badge.
// It returns the stored record and whether this call created it.
func (s *pgStore) CreatePendingMint(ctx context.Context, m *badge.Mint) (*badge.Mint, bool, error) {
	res, err := s.db.NewInsert().
		Model(toMintDao(m)).
		On("CONFLICT (user_id, badge_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, pgutil.WrapError("failed to create badge mint", err)
	}
	created := false
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created = true
	}

	stored, err := s.GetMint(ctx, m.UserID, m.BadgeID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *pgStore) GetMint(ctx context.Context, userID, badgeID string) (*badge.Mint, error) {
	dao := new(MintDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("bm.user_id = ?", userID).
		Where("bm.badge_id = ?", badgeID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, badge.ErrNotFound
		}
		return nil, pgutil.WrapError("failed to get badge mint", err)
	}
	return toMint(dao), nil
}

// ListMints returns all mint records of the user, pending ones included.
func (s *pgStore) ListMints(ctx context.Context, userID string) ([]*badge.Mint, error) {
	var daos []MintDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("bm.user_id = ?", userID).
		OrderExpr("bm.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to list badge mints", err)
	}
	return toMints(daos), nil
}

// ListPending returns mint records without a confirmed transaction, oldest first.
func (s *pgStore) ListPending(ctx context.Context, limit int) ([]*badge.Mint, error) {
	var daos []MintDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("bm.tx_hash IS NULL").
		OrderExpr("bm.created_at ASC, bm.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to list pending badge mints", err)
	}
	return toMints(daos), nil
}

// MarkMinted records the confirmed mint once.
func (s *pgStore) MarkMinted(ctx context.Context, id, txHash, tokenID string, at time.Time) (*badge.Mint, error) {
	dao := new(MintDao)
	var token *string
	if tokenID != "" {
		token = &tokenID
	}
	err := s.db.NewUpdate().
		Model(dao).
		Set("tx_hash = ?", txHash).
		Set("token_id = ?", token).
		Set("minted_at = ?", at).
		Where("bm.id = ?", id).
		Where("bm.tx_hash IS NULL").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return toMint(dao), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, pgutil.WrapError("failed to mark badge minted", err)
	}

	exists, err := s.db.NewSelect().Model((*MintDao)(nil)).Where("bm.id = ?", id).Exists(ctx)
	if err != nil {
		return nil, pgutil.WrapError("failed to check badge mint", err)
	}
	if !exists {
		return nil, badge.ErrNotFound
	}
	return nil, badge.ErrAlreadyMinted
}
