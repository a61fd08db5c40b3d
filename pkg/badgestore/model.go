package badgestore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/badge"
)

// MintDao maps to the 'badge_mints' table. (user_id, badge_id) is unique.
type MintDao struct {
	bun.BaseModel `bun:"table:badge_mints,alias:bm"`
	ID            string     `bun:"id,pk,type:uuid"`
	UserID        string     `bun:"user_id,notnull,type:varchar(128)"`
	BadgeID       string     `bun:"badge_id,notnull,type:varchar(64)"`
	TxHash        *string    `bun:"tx_hash,type:varchar(66)"`
	TokenID       *string    `bun:"token_id,type:varchar(78)"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	MintedAt      *time.Time `bun:"minted_at"`
}

func toMintDao(m *badge.Mint) *MintDao {
	dao := &MintDao{
		ID:        m.ID,
		UserID:    m.UserID,
		BadgeID:   m.BadgeID,
		CreatedAt: m.CreatedAt,
		MintedAt:  m.MintedAt,
	}
	if m.TxHash != "" {
		dao.TxHash = &m.TxHash
	}
	if m.TokenID != "" {
		dao.TokenID = &m.TokenID
	}
	return dao
}

func toMint(dao *MintDao) *badge.Mint {
	m := &badge.Mint{
		ID:        dao.ID,
		UserID:    dao.UserID,
		BadgeID:   dao.BadgeID,
		CreatedAt: dao.CreatedAt.UTC(),
	}
	if dao.TxHash != nil {
		m.TxHash = *dao.TxHash
	}
	if dao.TokenID != nil {
		m.TokenID = *dao.TokenID
	}
	if dao.MintedAt != nil {
		at := dao.MintedAt.UTC()
		m.MintedAt = &at
	}
	return m
}

func toMints(daos []MintDao) []*badge.Mint {
	out := make([]*badge.Mint, len(daos))
	for i := range daos {
		out[i] = toMint(&daos[i])
	}
	return out
}
