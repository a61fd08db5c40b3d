package ethereum

import (
	"errors"
)

var (
	// ErrReconciliationTimeout is returned when a receipt does not arrive within the confirmation timeout.
	ErrReconciliationTimeout = errors.New("timed out waiting for transaction confirmation")
	// ErrExternalLedgerUnavailable wraps RPC failures talking to the chain.
	ErrExternalLedgerUnavailable = errors.New("external ledger unavailable")
	// ErrTxReverted is returned for a mined transaction with a failed status.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrTxNotFound is returned when the node knows nothing about a transaction hash.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrNoSigner is returned for submissions when no signer key is configured.
	ErrNoSigner = errors.New("no signer key configured")
	// ErrClaimMismatch is returned when a client-submitted claim does not match the expected grant.
	ErrClaimMismatch = errors.New("transaction does not claim the expected reward")
	// ErrRewardIndex is returned when a confirmed addReward cannot be located in the pool.
	ErrRewardIndex = errors.New("cannot locate reward in pool")
)

// TxState is what the node reports for a previously submitted hash.
type TxState int

const (
	TxStateUnknown TxState = iota
	TxStatePending
	TxStateConfirmed
	TxStateReverted
)
