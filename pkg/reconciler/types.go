package reconciler

import (
	"errors"
	"time"
)

// RecordType names the ledger table a submission mirrors.
type RecordType string

const (
	RecordContribution RecordType = "contribution"
	RecordRewardGrant  RecordType = "reward_grant"
	RecordRewardClaim  RecordType = "reward_claim"
	RecordBadgeMint    RecordType = "badge_mint"
)

var (
	// ErrNoWallet is returned when the record's owner has no wallet to mirror to.
	ErrNoWallet = errors.New("user has no wallet address")
	// ErrInProgress is returned when the same record is already being submitted.
	ErrInProgress = errors.New("submission already in progress")
	// ErrWalletMustClaim is returned when the grant's wallet is not the service signer.
	ErrWalletMustClaim = errors.New("reward must be claimed from the owner's wallet")
	// ErrSubmissionNotFound is returned by submission stores for an unknown record.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Submission is a transaction sent for a ledger record whose outcome has not
// yet been persisted. It lets an interrupted mirror resume instead of resending.
type Submission struct {
	RecordType RecordType `json:"record_type"`
	RecordID   string     `json:"record_id"`
	TxHash     string     `json:"tx_hash"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Tally counts sweep outcomes for one record type.
type Tally struct {
	Mirrored int `json:"mirrored"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Contributions Tally `json:"contributions"`
	Grants        Tally `json:"grants"`
	Mints         Tally `json:"mints"`
}
