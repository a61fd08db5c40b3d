// Package service evaluates badge eligibility and drives explicit badge mints.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/user"
)

var ErrMinterUnavailable = errors.New("on-chain badge minting is not configured")

// Counter supplies aggregate counts. The contribution service implements it.
type Counter interface {
	AggregateCounts(ctx context.Context, userID string, kinds []contribution.Kind, since *time.Time) (*contribution.Counts, error)
}

// Store is the narrow data-access interface for badge mint records.
type Store interface {
	CreatePendingMint(ctx context.Context, m *badge.Mint) (*badge.Mint, bool, error)
	ListMints(ctx context.Context, userID string) ([]*badge.Mint, error)
}

// UserStore resolves the wallet a badge is minted to.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// Minter submits a mint for a pending record, waits for confirmation and
// returns the persisted minted record.
type Minter interface {
	SubmitBadgeMint(ctx context.Context, m *badge.Mint, wallet string, b badge.Badge) (*badge.Mint, error)
}

// Service defines the badge business logic
type Service interface {
	CheckEligibleBadges(ctx context.Context, userID string) ([]badge.Badge, error)
	UserBadges(ctx context.Context, userID string) ([]badge.UserBadge, error)
	MintBadge(ctx context.Context, userID, badgeID string) (*badge.Mint, error)
}

type badgeService struct {
	catalog *badge.Catalog
	counter Counter
	store   Store
	users   UserStore
	minter  Minter
	logger  *zap.Logger
}

// NewService creates a new badge service. minter may be nil when no chain is configured.
func NewService(catalog *badge.Catalog, counter Counter, store Store, users UserStore, minter Minter, logger *zap.Logger) Service {
	return &badgeService{
		catalog: catalog,
		counter: counter,
		store:   store,
		users:   users,
		minter:  minter,
		logger:  logger,
	}
}

// CheckEligibleBadges recomputes eligibility from the current aggregate counts.
func (s *badgeService) CheckEligibleBadges(ctx context.Context, userID string) ([]badge.Badge, error) {
	counts, err := s.counter.AggregateCounts(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return s.catalog.Eligible(counts), nil
}

func (s *badgeService) UserBadges(ctx context.Context, userID string) ([]badge.UserBadge, error) {
	counts, err := s.counter.AggregateCounts(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	mints, err := s.store.ListMints(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	byBadge := make(map[string]*badge.Mint, len(mints))
	for _, m := range mints {
		byBadge[m.BadgeID] = m
	}

	catalog := s.catalog.Badges()
	out := make([]badge.UserBadge, len(catalog))
	for i, b := range catalog {
		ub := badge.UserBadge{Badge: b, Eligible: s.catalog.IsEligible(b.ID, counts)}
		if m, ok := byBadge[b.ID]; ok && m.Minted() {
			ub.IsMinted = true
			ub.TokenID = m.TokenID
			ub.TxHash = m.TxHash
		}
		out[i] = ub
	}
	return out, nil
}

// MintBadge mints badgeID to the user's wallet. It is rejected unless the badge
// is currently eligible. A pending record left by a failed attempt is resumed.
func (s *badgeService) MintBadge(ctx context.Context, userID, badgeID string) (*badge.Mint, error) {
	b, ok := s.catalog.Get(badgeID)
	if !ok {
		return nil, apperrors.ResourceNotFoundError(badge.ErrNotFound, "badge not found")
	}

	counts, err := s.counter.AggregateCounts(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	if !s.catalog.IsEligible(badgeID, counts) {
		return nil, apperrors.BadRequestError(badge.ErrNotEligible, "not eligible for this badge")
	}

	usr, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "user not found or wallet not connected")
		}
		return nil, apperrors.FromStore(err)
	}
	if !usr.HasWallet() {
		return nil, apperrors.ResourceNotFoundError(badge.ErrNoWallet, "user not found or wallet not connected")
	}

	mint, _, err := s.store.CreatePendingMint(ctx, &badge.Mint{
		ID:        uuid.NewString(),
		UserID:    userID,
		BadgeID:   badgeID,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	if mint.Minted() {
		return nil, apperrors.ConflictError(badge.ErrAlreadyMinted, "badge already minted")
	}

	if s.minter == nil {
		return nil, apperrors.UnavailableError(ErrMinterUnavailable, "badge minting is not available")
	}

	minted, err := s.minter.SubmitBadgeMint(ctx, mint, usr.WalletAddress, b)
	if err != nil {
		if errors.Is(err, badge.ErrAlreadyMinted) {
			return nil, apperrors.ConflictError(err, "badge already minted")
		}
		return nil, err
	}
	return minted, nil
}
