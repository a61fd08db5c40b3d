package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/reward"
)

const serviceName = "RewardService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the reward Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Grant(ctx context.Context, req *reward.GrantRequest) (g *reward.Grant, err error) {
	start := time.Now()
	ls.logger.Info("Grant started",
		zap.String("service", serviceName),
		zap.String("method", "Grant"),
		zap.String("user_id", req.UserID),
		zap.String("amount", req.Amount),
		zap.String("reward_type", string(req.RewardType)),
	)
	defer func() {
		fields := []zap.Field{zap.String("user_id", req.UserID)}
		if g != nil {
			fields = append(fields, zap.String("grant_id", g.ID))
		}
		ls.done("Grant", start, err, true, fields...)
	}()
	return ls.svc.Grant(ctx, req)
}

func (ls *logService) MarkClaimed(ctx context.Context, grantID, txHash string) (g *reward.Grant, err error) {
	start := time.Now()
	defer func() {
		ls.done("MarkClaimed", start, err, true, zap.String("grant_id", grantID), zap.String("tx_hash", txHash))
	}()
	return ls.svc.MarkClaimed(ctx, grantID, txHash)
}

func (ls *logService) ListUnclaimed(ctx context.Context, userID string) (grants []*reward.Grant, err error) {
	start := time.Now()
	defer func() {
		ls.done("ListUnclaimed", start, err, false, zap.String("user_id", userID), zap.Int("count", len(grants)))
	}()
	return ls.svc.ListUnclaimed(ctx, userID)
}

func (ls *logService) List(ctx context.Context, userID string) (grants []*reward.Grant, err error) {
	start := time.Now()
	defer func() {
		ls.done("List", start, err, false, zap.String("user_id", userID), zap.Int("count", len(grants)))
	}()
	return ls.svc.List(ctx, userID)
}

func (ls *logService) ClaimNext(ctx context.Context, userID, txHash string) (g *reward.Grant, err error) {
	start := time.Now()
	ls.logger.Info("ClaimNext started",
		zap.String("service", serviceName),
		zap.String("method", "ClaimNext"),
		zap.String("user_id", userID),
		zap.Bool("client_submitted", txHash != ""),
	)
	defer func() {
		fields := []zap.Field{zap.String("user_id", userID)}
		if g != nil {
			fields = append(fields, zap.String("grant_id", g.ID), zap.String("amount", g.Amount.String()))
		}
		ls.done("ClaimNext", start, err, true, fields...)
	}()
	return ls.svc.ClaimNext(ctx, userID, txHash)
}

func (ls *logService) done(method string, start time.Time, err error, info bool, fields ...zap.Field) {
	fields = append(fields,
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
	switch {
	case err != nil:
		ls.logger.Error(method+" failed", append(fields, zap.Error(err))...)
	case info:
		ls.logger.Info(method+" completed", fields...)
	default:
		ls.logger.Debug(method+" completed", fields...)
	}
}
