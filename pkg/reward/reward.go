// Package reward defines reward grants: payable credits whose claim state
// transitions exactly once and whose claim order is oldest first.
package reward

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the reason a grant was issued.
type Type string

const (
	TypeWeekly    Type = "weekly"
	TypeMilestone Type = "milestone"
)

// Valid reports whether t is a known reward type.
func (t Type) Valid() bool {
	return t == TypeWeekly || t == TypeMilestone
}

var (
	ErrNotFound        = errors.New("reward grant not found")
	ErrAlreadyClaimed  = errors.New("reward already claimed")
	ErrNoUnclaimed     = errors.New("no unclaimed rewards")
	ErrInvalidAmount   = errors.New("invalid reward amount")
	ErrInvalidType     = errors.New("invalid reward type")
	ErrAlreadyMirrored = errors.New("reward grant already mirrored")
	ErrNotMirrored     = errors.New("reward grant not yet mirrored on chain")
)

// Grant is a payable credit issued to a user.
type Grant struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	RewardType Type            `json:"reward_type"`
	// GrantTxHash is the addReward transaction that mirrored the grant.
	GrantTxHash string `json:"grant_tx_hash,omitzero"`
	// ChainIndex is the grant's position in the reward pool's per-user list.
	ChainIndex *int64 `json:"chain_index,omitempty"`
	// ClaimTxHash is the confirmed claimReward transaction.
	ClaimTxHash string     `json:"claim_tx_hash,omitzero"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Claimed reports whether the grant has been claimed.
func (g *Grant) Claimed() bool {
	return g.ClaimedAt != nil
}

// Mirrored reports whether addReward has been confirmed for the grant.
func (g *Grant) Mirrored() bool {
	return g.GrantTxHash != "" && g.ChainIndex != nil
}

// GrantRequest is the input of a reward grant.
type GrantRequest struct {
	UserID     string `json:"user_id" validate:"required,max=128"`
	Amount     string `json:"amount" validate:"required"`
	RewardType Type   `json:"reward_type" validate:"required"`
}

// ParseAmount parses a positive fixed-point amount with at most maxDecimals fractional digits.
func ParseAmount(s string, maxDecimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if d.Exponent() < -maxDecimals && !d.Equal(d.Truncate(maxDecimals)) {
		return decimal.Zero, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, maxDecimals)
	}
	return d, nil
}

// Totals sums grants into the amount ever earned and the amount still unclaimed.
func Totals(grants []*Grant) (earned, pending decimal.Decimal) {
	earned, pending = decimal.Zero, decimal.Zero
	for _, g := range grants {
		earned = earned.Add(g.Amount)
		if !g.Claimed() {
			pending = pending.Add(g.Amount)
		}
	}
	return earned, pending
}
