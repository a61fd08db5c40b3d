// Package service implements the reward ledger: grants, FIFO listing and the
// exactly-once claim transition.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/reward"
)

var ErrClaimerUnavailable = errors.New("on-chain claim submission is not configured")

// Store is the narrow data-access interface for the reward ledger.
type Store interface {
	InsertGrant(ctx context.Context, g *reward.Grant) error
	GetGrant(ctx context.Context, id string) (*reward.Grant, error)
	ListGrants(ctx context.Context, userID string) ([]*reward.Grant, error)
	ListUnclaimed(ctx context.Context, userID string) ([]*reward.Grant, error)
	MarkClaimed(ctx context.Context, id, txHash string, at time.Time) (*reward.Grant, error)
}

// Claimer drives the reward pool's claim call. Submit and Verify block until the
// transaction is confirmed and return categorized service errors.
type Claimer interface {
	SubmitRewardClaim(ctx context.Context, g *reward.Grant) (txHash string, err error)
	VerifyRewardClaim(ctx context.Context, g *reward.Grant, txHash string) error
	// CompleteRewardClaim releases bookkeeping kept for a submitted claim.
	CompleteRewardClaim(ctx context.Context, grantID string)
}

// Service defines the reward ledger business logic
type Service interface {
	Grant(ctx context.Context, req *reward.GrantRequest) (*reward.Grant, error)
	MarkClaimed(ctx context.Context, grantID, txHash string) (*reward.Grant, error)
	ListUnclaimed(ctx context.Context, userID string) ([]*reward.Grant, error)
	List(ctx context.Context, userID string) ([]*reward.Grant, error)
	// ClaimNext claims the user's oldest unclaimed grant. An empty txHash submits
	// the claim from the service signer; otherwise the given transaction is verified.
	ClaimNext(ctx context.Context, userID, txHash string) (*reward.Grant, error)
}

type rewardService struct {
	store       Store
	claimer     Claimer
	maxDecimals int32
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new reward service. claimer may be nil when no chain is configured.
func NewService(store Store, claimer Claimer, maxDecimals int32, logger *zap.Logger) Service {
	return &rewardService{
		store:       store,
		claimer:     claimer,
		maxDecimals: maxDecimals,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *rewardService) Grant(ctx context.Context, req *reward.GrantRequest) (*reward.Grant, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.BadRequestError(nil, "user id is required")
	}
	if !req.RewardType.Valid() {
		return nil, apperrors.BadRequestError(reward.ErrInvalidType, "invalid reward type")
	}
	amount, err := reward.ParseAmount(req.Amount, s.maxDecimals)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid reward amount")
	}

	g := &reward.Grant{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Amount:     amount,
		RewardType: req.RewardType,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.InsertGrant(ctx, g); err != nil {
		return nil, apperrors.FromStore(err)
	}
	return g, nil
}

func (s *rewardService) MarkClaimed(ctx context.Context, grantID, txHash string) (*reward.Grant, error) {
	if txHash == "" {
		return nil, apperrors.BadRequestError(nil, "transaction hash is required")
	}

	g, err := s.store.MarkClaimed(ctx, grantID, txHash, s.now().UTC().Truncate(time.Microsecond))
	switch {
	case err == nil:
		metrics.RewardClaims.WithLabelValues("claimed").Inc()
		return g, nil
	case errors.Is(err, reward.ErrAlreadyClaimed):
		metrics.RewardClaims.WithLabelValues("already_claimed").Inc()
		return nil, apperrors.ConflictError(err, "reward already claimed")
	case errors.Is(err, reward.ErrNotFound):
		return nil, apperrors.ResourceNotFoundError(err, "reward not found")
	default:
		return nil, apperrors.FromStore(err)
	}
}

func (s *rewardService) ListUnclaimed(ctx context.Context, userID string) ([]*reward.Grant, error) {
	grants, err := s.store.ListUnclaimed(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return grants, nil
}

func (s *rewardService) List(ctx context.Context, userID string) ([]*reward.Grant, error) {
	grants, err := s.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return grants, nil
}

func (s *rewardService) ClaimNext(ctx context.Context, userID, txHash string) (*reward.Grant, error) {
	unclaimed, err := s.ListUnclaimed(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(unclaimed) == 0 {
		return nil, apperrors.ResourceNotFoundError(reward.ErrNoUnclaimed, "no unclaimed rewards")
	}
	target := unclaimed[0]

	if s.claimer == nil {
		return nil, apperrors.UnavailableError(ErrClaimerUnavailable, "reward claims are not available")
	}

	submitted := txHash == ""
	if submitted {
		txHash, err = s.claimer.SubmitRewardClaim(ctx, target)
	} else {
		err = s.claimer.VerifyRewardClaim(ctx, target, txHash)
	}
	if err != nil {
		metrics.RewardClaims.WithLabelValues("chain_failed").Inc()
		if errors.Is(err, reward.ErrAlreadyClaimed) {
			return nil, apperrors.ConflictError(err, "reward already claimed")
		}
		return nil, err
	}

	claimed, err := s.MarkClaimed(ctx, target.ID, txHash)
	if submitted && (err == nil || errors.Is(err, reward.ErrAlreadyClaimed)) {
		s.claimer.CompleteRewardClaim(ctx, target.ID)
	}
	return claimed, err
}
