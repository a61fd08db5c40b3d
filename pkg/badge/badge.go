// Package badge defines the milestone badge catalog and the eligibility rules
// evaluated against a user's aggregate contribution counts.
package badge

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("badge not found")
	ErrNotEligible   = errors.New("user is not eligible for this badge")
	ErrAlreadyMinted = errors.New("badge already minted")
	ErrNoWallet      = errors.New("user has no wallet address")
)

// Badge is a static catalog entry.
type Badge struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	Milestone   Milestone `json:"milestone" yaml:"milestone" validate:"required"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url"`
}

// Mint is the persisted per-user badge fact. A mint without TxHash is pending.
type Mint struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	BadgeID   string     `json:"badge_id"`
	TxHash    string     `json:"tx_hash,omitzero"`
	TokenID   string     `json:"token_id,omitzero"`
	CreatedAt time.Time  `json:"created_at"`
	MintedAt  *time.Time `json:"minted_at,omitempty"`
}

// Minted reports whether the mint transaction has been confirmed.
func (m *Mint) Minted() bool {
	return m.TxHash != ""
}

// UserBadge is a catalog badge annotated for one user.
type UserBadge struct {
	Badge
	Eligible bool   `json:"eligible"`
	IsMinted bool   `json:"is_minted"`
	TokenID  string `json:"nft_token_id,omitzero"`
	TxHash   string `json:"tx_hash,omitzero"`
}
