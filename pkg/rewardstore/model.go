package rewardstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/reward"
)

// GrantDao maps to the 'reward_grants' table.
type GrantDao struct {
	bun.BaseModel `bun:"table:reward_grants,alias:rg"`
	ID            string     `bun:"id,pk,type:uuid"`
	UserID        string     `bun:"user_id,notnull,type:varchar(128)"`
	Amount        string     `bun:"amount,notnull,type:numeric(38,18)"`
	RewardType    string     `bun:"reward_type,notnull,type:varchar(32)"`
	GrantTxHash   *string    `bun:"grant_tx_hash,type:varchar(66)"`
	ChainIndex    *int64     `bun:"chain_index"`
	ClaimTxHash   *string    `bun:"claim_tx_hash,type:varchar(66)"`
	ClaimedAt     *time.Time `bun:"claimed_at"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

func toGrantDao(g *reward.Grant) *GrantDao {
	dao := &GrantDao{
		ID:         g.ID,
		UserID:     g.UserID,
		Amount:     g.Amount.String(),
		RewardType: string(g.RewardType),
		ChainIndex: g.ChainIndex,
		ClaimedAt:  g.ClaimedAt,
		CreatedAt:  g.CreatedAt,
	}
	if g.GrantTxHash != "" {
		dao.GrantTxHash = &g.GrantTxHash
	}
	if g.ClaimTxHash != "" {
		dao.ClaimTxHash = &g.ClaimTxHash
	}
	return dao
}

func toGrant(dao *GrantDao) (*reward.Grant, error) {
	amount, err := decimal.NewFromString(dao.Amount)
	if err != nil {
		return nil, err
	}
	g := &reward.Grant{
		ID:         dao.ID,
		UserID:     dao.UserID,
		Amount:     amount,
		RewardType: reward.Type(dao.RewardType),
		ChainIndex: dao.ChainIndex,
		CreatedAt:  dao.CreatedAt.UTC(),
	}
	if dao.GrantTxHash != nil {
		g.GrantTxHash = *dao.GrantTxHash
	}
	if dao.ClaimTxHash != nil {
		g.ClaimTxHash = *dao.ClaimTxHash
	}
	if dao.ClaimedAt != nil {
		at := dao.ClaimedAt.UTC()
		g.ClaimedAt = &at
	}
	return g, nil
}

func toGrants(daos []GrantDao) ([]*reward.Grant, error) {
	out := make([]*reward.Grant, 0, len(daos))
	for i := range daos {
		g, err := toGrant(&daos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
