package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/reward"
)

const serviceName = "Reconciler"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the reconciler Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) SubmitContribution(ctx context.Context, eventID, userID string) (ev *contribution.Event, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("event_id", eventID), zap.String("user_id", userID)}
		if ev != nil {
			fields = append(fields, zap.String("tx_hash", ev.OnChainTxHash))
		}
		ls.done("SubmitContribution", start, err, fields...)
	}()
	return ls.svc.SubmitContribution(ctx, eventID, userID)
}

func (ls *logService) SubmitRewardGrant(ctx context.Context, grantID string) (g *reward.Grant, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("grant_id", grantID)}
		if g != nil {
			fields = append(fields, zap.String("tx_hash", g.GrantTxHash), zap.Int64p("chain_index", g.ChainIndex))
		}
		ls.done("SubmitRewardGrant", start, err, fields...)
	}()
	return ls.svc.SubmitRewardGrant(ctx, grantID)
}

func (ls *logService) SubmitRewardClaim(ctx context.Context, g *reward.Grant) (txHash string, err error) {
	start := time.Now()
	ls.logger.Info("SubmitRewardClaim started",
		zap.String("service", serviceName),
		zap.String("method", "SubmitRewardClaim"),
		zap.String("grant_id", g.ID),
		zap.String("user_id", g.UserID),
	)
	defer func() {
		ls.done("SubmitRewardClaim", start, err, zap.String("grant_id", g.ID), zap.String("tx_hash", txHash))
	}()
	return ls.svc.SubmitRewardClaim(ctx, g)
}

func (ls *logService) VerifyRewardClaim(ctx context.Context, g *reward.Grant, txHash string) (err error) {
	start := time.Now()
	defer func() {
		ls.done("VerifyRewardClaim", start, err, zap.String("grant_id", g.ID), zap.String("tx_hash", txHash))
	}()
	return ls.svc.VerifyRewardClaim(ctx, g, txHash)
}

func (ls *logService) SubmitBadgeMint(ctx context.Context, m *badge.Mint, wallet string, b badge.Badge) (minted *badge.Mint, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("mint_id", m.ID), zap.String("badge_id", b.ID)}
		if minted != nil {
			fields = append(fields, zap.String("tx_hash", minted.TxHash), zap.String("token_id", minted.TokenID))
		}
		ls.done("SubmitBadgeMint", start, err, fields...)
	}()
	return ls.svc.SubmitBadgeMint(ctx, m, wallet, b)
}

func (ls *logService) Sweep(ctx context.Context) (res *SweepResult, err error) {
	start := time.Now()
	defer func() {
		ls.done("Sweep", start, err)
	}()
	return ls.svc.Sweep(ctx)
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
