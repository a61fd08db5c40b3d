package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/wallet"
)

type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the wallet Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger.With(zap.String("service", "WalletService"))}
}

func (ls *logService) GetWalletView(ctx context.Context, userID string) (view *wallet.View, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{
			zap.String("method", "GetWalletView"),
			zap.String("user_id", userID),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			ls.logger.Error("GetWalletView failed", append(fields, zap.Error(err))...)
			return
		}
		ls.logger.Debug("GetWalletView completed", append(fields,
			zap.String("balance", view.OnChainBalance),
			zap.Int("transactions", len(view.Transactions)),
		)...)
	}()
	return ls.svc.GetWalletView(ctx, userID)
}
