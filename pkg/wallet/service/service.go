// Package service assembles the wallet view.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/reward"
	"github.com/taskchain/taskchain/pkg/user"
	"github.com/taskchain/taskchain/pkg/wallet"
)

const balanceTimeout = 5 * time.Second

// UserStore resolves the user's linked wallet.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// GrantStore lists the user's reward grants.
type GrantStore interface {
	ListGrants(ctx context.Context, userID string) ([]*reward.Grant, error)
}

// BadgeLister returns the catalog annotated for a user. The badge service implements it.
type BadgeLister interface {
	UserBadges(ctx context.Context, userID string) ([]badge.UserBadge, error)
}

// BalanceReader reads a live on-chain balance.
type BalanceReader interface {
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
}

// Service defines the wallet business logic
type Service interface {
	GetWalletView(ctx context.Context, userID string) (*wallet.View, error)
}

type walletService struct {
	users   UserStore
	grants  GrantStore
	badges  BadgeLister
	balance BalanceReader
	logger  *zap.Logger
}

// NewService creates a new wallet service. balance may be nil when no chain is configured.
func NewService(users UserStore, grants GrantStore, badges BadgeLister, balance BalanceReader, logger *zap.Logger) Service {
	return &walletService{
		users:   users,
		grants:  grants,
		badges:  badges,
		balance: balance,
		logger:  logger,
	}
}

// GetWalletView joins the reward bookkeeping with the live balance. A failed
// balance read degrades to a placeholder instead of failing the view.
func (s *walletService) GetWalletView(ctx context.Context, userID string) (*wallet.View, error) {
	usr, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.FromStore(err)
		}
		usr = &user.User{ID: userID}
	}

	grants, err := s.grants.ListGrants(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	earned, pending := reward.Totals(grants)

	view := &wallet.View{
		Address:        wallet.NotConnected,
		OnChainBalance: wallet.UnknownBalance,
		TotalEarned:    wallet.FormatAmount(earned),
		PendingRewards: wallet.FormatAmount(pending),
		Currency:       wallet.Currency,
		Transactions:   make([]wallet.Transaction, len(grants)),
		Badges:         []badge.UserBadge{},
	}
	for i, g := range grants {
		view.Transactions[i] = wallet.NewTransaction(g)
	}

	if usr.HasWallet() {
		view.Address = usr.WalletAddress
		view.OnChainBalance = s.readBalance(ctx, usr.WalletAddress)
	}

	badges, err := s.badges.UserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range badges {
		if b.IsMinted {
			view.Badges = append(view.Badges, b)
		}
	}

	return view, nil
}

func (s *walletService) readBalance(ctx context.Context, address string) string {
	if s.balance == nil {
		return wallet.UnknownBalance
	}

	ctx, cancel := context.WithTimeout(ctx, balanceTimeout)
	defer cancel()

	bal, err := s.balance.BalanceOf(ctx, address)
	if err != nil {
		metrics.BalanceReadFailures.Inc()
		s.logger.Warn("on-chain balance unavailable, using placeholder",
			zap.String("address", address),
			zap.Error(err),
		)
		return wallet.UnknownBalance
	}
	return wallet.FormatAmount(bal)
}
