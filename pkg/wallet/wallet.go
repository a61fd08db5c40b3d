// Package wallet defines the caller-facing wallet view that joins reward
// bookkeeping, the live on-chain balance and minted badges.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/reward"
)

const (
	// NotConnected is shown in place of an address for users without a wallet.
	NotConnected = "Not Connected"
	// UnknownBalance is shown when the on-chain balance cannot be read.
	UnknownBalance = "0.00"
	Currency       = "CELO"
)

// TxType classifies a wallet transaction row.
type TxType string

const (
	TxReward    TxType = "REWARD"
	TxMilestone TxType = "MILESTONE"
)

// TxStatus is COMPLETED once the grant has been claimed on chain.
type TxStatus string

const (
	StatusCompleted TxStatus = "COMPLETED"
	StatusPending   TxStatus = "PENDING"
)

// Transaction is one reward grant rendered for the wallet.
type Transaction struct {
	ID        string     `json:"id"`
	Type      TxType     `json:"type"`
	Amount    string     `json:"amount"`
	Currency  string     `json:"currency"`
	Status    TxStatus   `json:"status"`
	TxHash    string     `json:"tx_hash,omitzero"`
	CreatedAt time.Time  `json:"created_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// View is the wallet page model.
type View struct {
	Address        string            `json:"address"`
	OnChainBalance string            `json:"on_chain_balance"`
	TotalEarned    string            `json:"total_earned"`
	PendingRewards string            `json:"pending_rewards"`
	Currency       string            `json:"currency"`
	Transactions   []Transaction     `json:"transactions"`
	Badges         []badge.UserBadge `json:"badges"`
}

// NewTransaction renders a grant.
func NewTransaction(g *reward.Grant) Transaction {
	tx := Transaction{
		ID:        g.ID,
		Type:      TxMilestone,
		Amount:    FormatAmount(g.Amount),
		Currency:  Currency,
		Status:    StatusPending,
		CreatedAt: g.CreatedAt,
	}
	if g.RewardType == reward.TypeWeekly {
		tx.Type = TxReward
	}
	if g.Claimed() {
		tx.Status = StatusCompleted
		tx.TxHash = g.ClaimTxHash
		tx.ClaimedAt = g.ClaimedAt
	}
	return tx
}

// FormatAmount renders d with at least two decimal places and never rounds.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
