package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/badge"
)

const serviceName = "BadgeService"

type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the badge Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) CheckEligibleBadges(ctx context.Context, userID string) (badges []badge.Badge, err error) {
	start := time.Now()
	defer func() {
		ls.done("CheckEligibleBadges", start, err, zap.String("user_id", userID), zap.Int("eligible", len(badges)))
	}()
	return ls.svc.CheckEligibleBadges(ctx, userID)
}

func (ls *logService) UserBadges(ctx context.Context, userID string) (badges []badge.UserBadge, err error) {
	start := time.Now()
	defer func() {
		ls.done("UserBadges", start, err, zap.String("user_id", userID))
	}()
	return ls.svc.UserBadges(ctx, userID)
}

func (ls *logService) MintBadge(ctx context.Context, userID, badgeID string) (m *badge.Mint, err error) {
	start := time.Now()
	ls.logger.Info("MintBadge started",
		zap.String("service", serviceName),
		zap.String("method", "MintBadge"),
		zap.String("user_id", userID),
		zap.String("badge_id", badgeID),
	)
	defer func() {
		fields := []zap.Field{zap.String("user_id", userID), zap.String("badge_id", badgeID)}
		if m != nil {
			fields = append(fields, zap.String("tx_hash", m.TxHash), zap.String("token_id", m.TokenID))
		}
		if err == nil {
			ls.logger.Info("MintBadge completed", append(fields,
				zap.String("service", serviceName),
				zap.String("method", "MintBadge"),
				zap.Duration("duration", time.Since(start)),
			)...)
			return
		}
		ls.done("MintBadge", start, err, fields...)
	}()
	return ls.svc.MintBadge(ctx, userID, badgeID)
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
