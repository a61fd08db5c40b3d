package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/user"
)

const serviceName = "ProfileService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the profile Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) GetProfile(ctx context.Context, userID string) (usr *user.User, err error) {
	start := time.Now()
	defer func() {
		ls.done("GetProfile", start, err, zap.String("user_id", userID))
	}()
	return ls.svc.GetProfile(ctx, userID)
}

func (ls *logService) UpdateProfile(ctx context.Context, userID string, req *user.ProfileRequest) (usr *user.User, err error) {
	start := time.Now()
	ls.logger.Info("UpdateProfile started",
		zap.String("service", serviceName),
		zap.String("method", "UpdateProfile"),
		zap.String("user_id", userID),
		zap.Bool("github_username_set", req.GithubUsername != nil),
		zap.Bool("wallet_address_set", req.WalletAddress != nil),
	)
	defer func() {
		fields := []zap.Field{zap.String("user_id", userID)}
		if usr != nil {
			fields = append(fields, zap.Bool("has_wallet", usr.HasWallet()))
		}
		ls.done("UpdateProfile", start, err, fields...)
	}()
	return ls.svc.UpdateProfile(ctx, userID, req)
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
