// Package service serves leaderboards from an expiring snapshot cache and
// recomputes them from the contribution ledger on a miss.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/user"
)

// Aggregator groups contribution events. The contribution store implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, filter contribution.Filter) ([]contribution.AggregateRow, error)
}

// UserStore resolves display names for ranked users.
type UserStore interface {
	ListUsersByIDs(ctx context.Context, ids []string) (map[string]*user.User, error)
}

// Cache holds at most one snapshot per period. Get returns leaderboard.ErrCacheMiss when empty.
type Cache interface {
	Get(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error)
	Put(ctx context.Context, snap *leaderboard.Snapshot) error
}

// RankResult is a user's position on one board. Rank is 0 when the user is absent.
type RankResult struct {
	Period leaderboard.Period `json:"period"`
	UserID string             `json:"user_id"`
	Rank   int                `json:"rank"`
	Entry  *leaderboard.Entry `json:"entry,omitempty"`
}

// Service defines the leaderboard business logic
type Service interface {
	GetLeaderboard(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error)
	GetUserRank(ctx context.Context, userID string, period leaderboard.Period) (*RankResult, error)
}

type leaderboardService struct {
	aggregator Aggregator
	users      UserStore
	cache      Cache
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new leaderboard service
func NewService(aggregator Aggregator, users UserStore, cache Cache, ttl time.Duration, logger *zap.Logger) Service {
	return &leaderboardService{
		aggregator: aggregator,
		users:      users,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// GetLeaderboard serves the cached snapshot while it is fresh, otherwise
// recomputes and overwrites it. A failing cache degrades to recomputation.
func (s *leaderboardService) GetLeaderboard(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	now := s.now().UTC()

	snap, err := s.cache.Get(ctx, period)
	switch {
	case err == nil && snap.Fresh(now):
		metrics.LeaderboardRequests.WithLabelValues(string(period), "hit").Inc()
		return snap, nil
	case err != nil && !errors.Is(err, leaderboard.ErrCacheMiss):
		s.logger.Warn("leaderboard cache read failed, recomputing",
			zap.String("period", string(period)),
			zap.Error(err),
		)
	}
	metrics.LeaderboardRequests.WithLabelValues(string(period), "miss").Inc()

	snap, err = s.compute(ctx, period, now)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, snap); err != nil {
		s.logger.Warn("failed to store leaderboard snapshot",
			zap.String("period", string(period)),
			zap.Error(err),
		)
	}
	return snap, nil
}

func (s *leaderboardService) compute(ctx context.Context, period leaderboard.Period, now time.Time) (*leaderboard.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.LeaderboardComputeDuration.WithLabelValues(string(period)).Observe(time.Since(start).Seconds())
	}()

	rows, err := s.aggregator.Aggregate(ctx, contribution.Filter{Since: period.Since(now)})
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	snap := leaderboard.Build(period, contribution.Fold(rows), now, s.ttl)

	if len(snap.Entries) == 0 {
		return snap, nil
	}
	ids := make([]string, len(snap.Entries))
	for i, e := range snap.Entries {
		ids[i] = e.UserID
	}
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	for i := range snap.Entries {
		if u, ok := users[snap.Entries[i].UserID]; ok {
			snap.Entries[i].GithubUsername = u.GithubUsername
		}
	}
	return snap, nil
}

// GetUserRank is the user's position in GetLeaderboard(period), or 0.
func (s *leaderboardService) GetUserRank(ctx context.Context, userID string, period leaderboard.Period) (*RankResult, error) {
	snap, err := s.GetLeaderboard(ctx, period)
	if err != nil {
		return nil, err
	}

	res := &RankResult{Period: period, UserID: userID}
	if entry, ok := snap.EntryOf(userID); ok {
		res.Rank = entry.Rank
		res.Entry = &entry
	}
	return res, nil
}
