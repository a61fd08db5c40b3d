// Package reconciler mirrors ledger records onto the external chain: it submits
// the transaction, waits for a single confirmation and persists the hash. A
// failed or timed-out attempt leaves the record unmirrored and safe to retry.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-co-op/gocron/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/ethereum"
	"github.com/taskchain/taskchain/pkg/reward"
	"github.com/taskchain/taskchain/pkg/user"
)

// Ledger is the external chain. *ethereum.Client implements it.
type Ledger interface {
	LogContribution(ctx context.Context, user common.Address, kind string, points int) (common.Hash, error)
	AddReward(ctx context.Context, user common.Address, amount decimal.Decimal) (common.Hash, error)
	ClaimReward(ctx context.Context, index int64) (common.Hash, error)
	MintBadge(ctx context.Context, to common.Address, name, description, milestone string) (common.Hash, error)
	WaitForReceipt(ctx context.Context, op string, hash common.Hash) (*types.Receipt, error)
	TxState(ctx context.Context, hash common.Hash) (ethereum.TxState, error)
	MintedTokenID(receipt *types.Receipt, to common.Address) (*big.Int, error)
	VerifyClaim(ctx context.Context, hash common.Hash, wallet common.Address, index int64) error
	RewardIndex(ctx context.Context, receipt *types.Receipt, user common.Address) (int64, error)
	Address() common.Address
}

// ContributionStore is the contribution ledger as seen by the reconciler.
type ContributionStore interface {
	GetEvent(ctx context.Context, id string) (*contribution.Event, error)
	ListUnmirrored(ctx context.Context, limit int) ([]*contribution.Event, error)
	MarkMirrored(ctx context.Context, id, txHash string) error
}

// RewardStore is the reward ledger as seen by the reconciler.
type RewardStore interface {
	GetGrant(ctx context.Context, id string) (*reward.Grant, error)
	ListUnmirrored(ctx context.Context, limit int) ([]*reward.Grant, error)
	MarkMirrored(ctx context.Context, id, txHash string, chainIndex int64) (*reward.Grant, error)
}

// BadgeStore holds badge mint records.
type BadgeStore interface {
	ListPending(ctx context.Context, limit int) ([]*badge.Mint, error)
	MarkMinted(ctx context.Context, id, txHash, tokenID string, at time.Time) (*badge.Mint, error)
}

// UserStore resolves record owners to wallets.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// SubmissionStore remembers in-flight transactions per record.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, recordType RecordType, recordID string) (*Submission, error)
	SaveSubmission(ctx context.Context, sub *Submission) error
	DeleteSubmission(ctx context.Context, recordType RecordType, recordID string) error
}

// Service defines the mirroring operations.
type Service interface {
	SubmitContribution(ctx context.Context, eventID, userID string) (*contribution.Event, error)
	SubmitRewardGrant(ctx context.Context, grantID string) (*reward.Grant, error)
	SubmitRewardClaim(ctx context.Context, g *reward.Grant) (string, error)
	VerifyRewardClaim(ctx context.Context, g *reward.Grant, txHash string) error
	SubmitBadgeMint(ctx context.Context, m *badge.Mint, wallet string, b badge.Badge) (*badge.Mint, error)
	Sweep(ctx context.Context) (*SweepResult, error)
}

// Reconciler drives ledger records through Unmirrored -> Submitting -> Mirrored.
type Reconciler struct {
	cfg           *config.ReconciliationConfig
	ledger        Ledger
	contributions ContributionStore
	rewards       RewardStore
	badges        BadgeStore
	catalog       *badge.Catalog
	users         UserStore
	submissions   SubmissionStore
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}

	scheduler gocron.Scheduler
}

// New creates a new Reconciler
func New(
	cfg *config.ReconciliationConfig,
	ledger Ledger,
	contributions ContributionStore,
	rewards RewardStore,
	badges BadgeStore,
	catalog *badge.Catalog,
	users UserStore,
	submissions SubmissionStore,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:           cfg,
		ledger:        ledger,
		contributions: contributions,
		rewards:       rewards,
		badges:        badges,
		catalog:       catalog,
		users:         users,
		submissions:   submissions,
		logger:        logger,
		now:           time.Now,
		inflight:      make(map[string]struct{}),
	}
}

// SubmitContribution mirrors one event via logContribution. userID, when set,
// must own the event.
func (r *Reconciler) SubmitContribution(ctx context.Context, eventID, userID string) (*contribution.Event, error) {
	ev, err := r.contributions.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, contribution.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "contribution not found")
		}
		return nil, apperrors.FromStore(err)
	}
	if userID != "" && ev.UserID != userID {
		return nil, apperrors.ResourceNotFoundError(contribution.ErrNotFound, "contribution not found")
	}
	if ev.Mirrored() {
		return nil, apperrors.ConflictError(contribution.ErrAlreadyMirrored, "contribution already mirrored")
	}

	wallet, err := r.walletOf(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}

	receipt, err := r.mirror(ctx, RecordContribution, ev.ID, ethereum.OpLogContribution, func(ctx context.Context) (common.Hash, error) {
		return r.ledger.LogContribution(ctx, wallet, string(ev.Kind), ev.Points)
	})
	if err != nil {
		return nil, err
	}

	hash := receipt.TxHash.Hex()
	if err := r.contributions.MarkMirrored(ctx, ev.ID, hash); err != nil {
		if errors.Is(err, contribution.ErrAlreadyMirrored) {
			return nil, apperrors.ConflictError(err, "contribution already mirrored")
		}
		return nil, apperrors.FromStore(err)
	}
	r.clearSubmission(ctx, RecordContribution, ev.ID)

	ev.OnChainTxHash = hash
	return ev, nil
}

// SubmitRewardGrant adds the grant to the reward pool and records the index the
// pool assigned to it, read from chain state at the receipt block.
func (r *Reconciler) SubmitRewardGrant(ctx context.Context, grantID string) (*reward.Grant, error) {
	g, err := r.rewards.GetGrant(ctx, grantID)
	if err != nil {
		if errors.Is(err, reward.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "reward not found")
		}
		return nil, apperrors.FromStore(err)
	}
	if g.Mirrored() {
		return nil, apperrors.ConflictError(reward.ErrAlreadyMirrored, "reward already mirrored")
	}

	wallet, err := r.walletOf(ctx, g.UserID)
	if err != nil {
		return nil, err
	}

	receipt, err := r.mirror(ctx, RecordRewardGrant, g.ID, ethereum.OpAddReward, func(ctx context.Context) (common.Hash, error) {
		return r.ledger.AddReward(ctx, wallet, g.Amount)
	})
	if err != nil {
		return nil, err
	}

	// The submission stays on file until the index is known, so a retry
	// resumes this transaction instead of adding a second reward.
	index, err := r.ledger.RewardIndex(ctx, receipt, wallet)
	if err != nil {
		r.logger.Warn("Failed to locate reward in pool",
			zap.String("grant_id", g.ID),
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Error(err))
		return nil, chainError(err)
	}

	mirrored, err := r.rewards.MarkMirrored(ctx, g.ID, receipt.TxHash.Hex(), index)
	if err != nil {
		if errors.Is(err, reward.ErrAlreadyMirrored) {
			return nil, apperrors.ConflictError(err, "reward already mirrored")
		}
		return nil, apperrors.FromStore(err)
	}
	r.clearSubmission(ctx, RecordRewardGrant, g.ID)

	return mirrored, nil
}

// SubmitRewardClaim submits claimReward for the grant's chain index, mirroring
// the grant first when needed, and returns the confirmed hash. claimReward pays
// msg.sender, so only grants owned by the service signer's wallet are claimed
// here; other owners get ErrWalletMustClaim with the index to claim themselves.
// The submission record is kept until CompleteRewardClaim so a retry after a
// failed markClaimed returns the same hash.
func (r *Reconciler) SubmitRewardClaim(ctx context.Context, g *reward.Grant) (string, error) {
	if !g.Mirrored() {
		mirrored, err := r.SubmitRewardGrant(ctx, g.ID)
		if err != nil {
			return "", err
		}
		g = mirrored
	}
	index := *g.ChainIndex

	wallet, err := r.walletOf(ctx, g.UserID)
	if err != nil {
		return "", err
	}
	if signer := r.ledger.Address(); signer == (common.Address{}) || wallet != signer {
		return "", apperrors.BadRequestError(ErrWalletMustClaim,
			fmt.Sprintf("submit claimReward(%d) from your wallet and post its tx_hash", index))
	}

	receipt, err := r.mirror(ctx, RecordRewardClaim, g.ID, ethereum.OpClaimReward, func(ctx context.Context) (common.Hash, error) {
		return r.ledger.ClaimReward(ctx, index)
	})
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// CompleteRewardClaim drops the claim submission once the grant is marked claimed.
func (r *Reconciler) CompleteRewardClaim(ctx context.Context, grantID string) {
	r.clearSubmission(ctx, RecordRewardClaim, grantID)
}

// VerifyRewardClaim checks a client-submitted claim transaction against the grant.
func (r *Reconciler) VerifyRewardClaim(ctx context.Context, g *reward.Grant, txHash string) error {
	raw, err := hexutil.Decode(txHash)
	if err != nil || len(raw) != common.HashLength {
		return apperrors.BadRequestError(err, "invalid transaction hash")
	}
	if !g.Mirrored() {
		return apperrors.BadRequestError(reward.ErrNotMirrored, "reward is not yet claimable on chain")
	}

	wallet, err := r.walletOf(ctx, g.UserID)
	if err != nil {
		return err
	}

	err = r.ledger.VerifyClaim(ctx, common.BytesToHash(raw), wallet, *g.ChainIndex)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ethereum.ErrClaimMismatch),
		errors.Is(err, ethereum.ErrTxReverted),
		errors.Is(err, ethereum.ErrTxNotFound):
		return apperrors.BadRequestError(err, "transaction does not claim this reward")
	default:
		return chainError(err)
	}
}

// SubmitBadgeMint mints b to wallet for the pending record m and marks it minted.
func (r *Reconciler) SubmitBadgeMint(ctx context.Context, m *badge.Mint, wallet string, b badge.Badge) (*badge.Mint, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperrors.BadRequestError(ErrNoWallet, "invalid wallet address")
	}
	to := common.HexToAddress(wallet)

	receipt, err := r.mirror(ctx, RecordBadgeMint, m.ID, ethereum.OpMintBadge, func(ctx context.Context) (common.Hash, error) {
		return r.ledger.MintBadge(ctx, to, b.Name, b.Description, string(b.Milestone))
	})
	if err != nil {
		return nil, err
	}

	var tokenID string
	if id, err := r.ledger.MintedTokenID(receipt, to); err != nil {
		r.logger.Warn("Mint receipt carries no token id",
			zap.String("mint_id", m.ID),
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Error(err))
	} else {
		tokenID = id.String()
	}

	minted, err := r.badges.MarkMinted(ctx, m.ID, receipt.TxHash.Hex(), tokenID, r.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		if errors.Is(err, badge.ErrAlreadyMinted) {
			return nil, apperrors.ConflictError(err, "badge already minted")
		}
		if errors.Is(err, badge.ErrNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "badge mint not found")
		}
		return nil, apperrors.FromStore(err)
	}
	r.clearSubmission(ctx, RecordBadgeMint, m.ID)

	return minted, nil
}

// mirror sends a transaction for the record and waits for it to confirm. A
// transaction already on file for the record is resumed when the node still
// knows it; dropped or reverted ones are replaced by a fresh submission.
func (r *Reconciler) mirror(
	ctx context.Context,
	recordType RecordType,
	recordID, op string,
	send func(ctx context.Context) (common.Hash, error),
) (*types.Receipt, error) {
	key := string(recordType) + ":" + recordID
	if !r.acquire(key) {
		return nil, apperrors.ConflictError(ErrInProgress, "submission already in progress")
	}
	defer r.release(key)

	receipt, resumed, err := r.resume(ctx, recordType, recordID, op)
	if err != nil {
		return nil, err
	}
	if resumed {
		return receipt, nil
	}

	hash, err := send(ctx)
	if err != nil {
		return nil, chainError(err)
	}

	sub := &Submission{
		RecordType: recordType,
		RecordID:   recordID,
		TxHash:     hash.Hex(),
		CreatedAt:  r.now().UTC().Truncate(time.Microsecond),
	}
	if err := r.submissions.SaveSubmission(ctx, sub); err != nil {
		r.logger.Warn("Failed to record submission",
			zap.String("record_type", string(recordType)),
			zap.String("record_id", recordID),
			zap.String("tx_hash", sub.TxHash),
			zap.Error(err))
	}

	receipt, err = r.ledger.WaitForReceipt(ctx, op, hash)
	if err != nil {
		if errors.Is(err, ethereum.ErrTxReverted) {
			r.clearSubmission(ctx, recordType, recordID)
		}
		return nil, chainError(err)
	}
	return receipt, nil
}

func (r *Reconciler) resume(ctx context.Context, recordType RecordType, recordID, op string) (*types.Receipt, bool, error) {
	sub, err := r.submissions.GetSubmission(ctx, recordType, recordID)
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.FromStore(err)
	}

	hash := common.HexToHash(sub.TxHash)
	state, err := r.ledger.TxState(ctx, hash)
	if err != nil {
		return nil, false, chainError(err)
	}

	switch state {
	case ethereum.TxStateConfirmed, ethereum.TxStatePending:
		r.logger.Info("Resuming submitted transaction",
			zap.String("record_type", string(recordType)),
			zap.String("record_id", recordID),
			zap.String("tx_hash", sub.TxHash))
		receipt, err := r.ledger.WaitForReceipt(ctx, op, hash)
		if err == nil {
			return receipt, true, nil
		}
		if !errors.Is(err, ethereum.ErrTxReverted) {
			return nil, false, chainError(err)
		}
	}

	r.logger.Info("Replacing dropped or reverted submission",
		zap.String("record_type", string(recordType)),
		zap.String("record_id", recordID),
		zap.String("tx_hash", sub.TxHash))
	if err := r.submissions.DeleteSubmission(ctx, recordType, recordID); err != nil {
		return nil, false, apperrors.FromStore(err)
	}
	return nil, false, nil
}

func (r *Reconciler) clearSubmission(ctx context.Context, recordType RecordType, recordID string) {
	if err := r.submissions.DeleteSubmission(ctx, recordType, recordID); err != nil && !errors.Is(err, ErrSubmissionNotFound) {
		r.logger.Warn("Failed to clear submission",
			zap.String("record_type", string(recordType)),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

func (r *Reconciler) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

func (r *Reconciler) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
}

func (r *Reconciler) walletOf(ctx context.Context, userID string) (common.Address, error) {
	usr, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return common.Address{}, apperrors.BadRequestError(ErrNoWallet, "user has no wallet connected")
		}
		return common.Address{}, apperrors.FromStore(err)
	}
	if !usr.HasWallet() || !common.IsHexAddress(usr.WalletAddress) {
		return common.Address{}, apperrors.BadRequestError(ErrNoWallet, "user has no wallet connected")
	}
	return common.HexToAddress(usr.WalletAddress), nil
}

// chainError categorizes an external ledger failure.
func chainError(err error) error {
	switch {
	case errors.Is(err, ethereum.ErrReconciliationTimeout):
		return apperrors.TimeoutError(err, "timed out waiting for on-chain confirmation, retry later")
	case errors.Is(err, ethereum.ErrInvalidAmount):
		return apperrors.BadRequestError(err, "amount cannot be represented on chain")
	case errors.Is(err, ethereum.ErrNoSigner):
		return apperrors.UnavailableError(err, "on-chain submission is not configured")
	case errors.Is(err, ethereum.ErrTxReverted):
		return apperrors.DependencyError(err, "on-chain transaction reverted")
	case errors.Is(err, ethereum.ErrRewardIndex):
		return apperrors.DependencyError(err, "reward not found in pool after confirmation")
	case errors.Is(err, ethereum.ErrExternalLedgerUnavailable):
		return apperrors.DependencyError(err, "external ledger unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.TimeoutError(err, "request cancelled before confirmation")
	default:
		return apperrors.FromStore(err)
	}
}
