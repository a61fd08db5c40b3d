package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/leaderboard"
)

const serviceName = "LeaderboardService"

type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the leaderboard Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) GetLeaderboard(ctx context.Context, period leaderboard.Period) (snap *leaderboard.Snapshot, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("period", string(period))}
		if snap != nil {
			fields = append(fields, zap.Int("entries", len(snap.Entries)), zap.Time("computed_at", snap.ComputedAt))
		}
		ls.done("GetLeaderboard", start, err, fields...)
	}()
	return ls.svc.GetLeaderboard(ctx, period)
}

func (ls *logService) GetUserRank(ctx context.Context, userID string, period leaderboard.Period) (res *RankResult, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("user_id", userID), zap.String("period", string(period))}
		if res != nil {
			fields = append(fields, zap.Int("rank", res.Rank))
		}
		ls.done("GetUserRank", start, err, fields...)
	}()
	return ls.svc.GetUserRank(ctx, userID, period)
}

func (ls *logService) done(method string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		ls.logger.Error(method+" failed", append(fields, zap.Error(err))...)
		return
	}
	ls.logger.Debug(method+" completed", fields...)
}
