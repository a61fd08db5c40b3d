package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/contribution"
)

const serviceName = "ContributionService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the contribution Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Record(ctx context.Context, req *contribution.RecordRequest) (ev *contribution.Event, created bool, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{
			zap.String("user_id", req.UserID),
			zap.String("kind", string(req.Kind)),
			zap.String("external_id", req.ExternalID),
		}
		if err == nil {
			fields = append(fields, zap.Bool("created", created), zap.Int("points", ev.Points))
		}
		ls.done("Record", start, err, fields...)
	}()
	return ls.svc.Record(ctx, req)
}

func (ls *logService) ListForUser(ctx context.Context, userID string, limit int) (events []*contribution.Event, err error) {
	start := time.Now()
	defer func() {
		ls.done("ListForUser", start, err, zap.String("user_id", userID), zap.Int("count", len(events)))
	}()
	return ls.svc.ListForUser(ctx, userID, limit)
}

func (ls *logService) AggregateCounts(
	ctx context.Context,
	userID string,
	kinds []contribution.Kind,
	since *time.Time,
) (counts *contribution.Counts, err error) {
	start := time.Now()
	defer func() {
		ls.done("AggregateCounts", start, err, zap.String("user_id", userID))
	}()
	return ls.svc.AggregateCounts(ctx, userID, kinds, since)
}

func (ls *logService) Sync(ctx context.Context, req *contribution.SyncRequest) (res *contribution.SyncResult, err error) {
	start := time.Now()
	ls.logger.Info("Sync started",
		zap.String("service", serviceName),
		zap.String("method", "Sync"),
		zap.String("repository", req.Repository),
		zap.Int("items", len(req.Items)),
	)
	defer func() {
		fields := []zap.Field{zap.String("repository", req.Repository)}
		if res != nil {
			fields = append(fields,
				zap.Int("created", res.Created),
				zap.Int("duplicates", res.Duplicates),
				zap.Int("skipped", res.Skipped),
				zap.Int("points_awarded", res.PointsAwarded),
			)
		}
		if err == nil {
			ls.logger.Info("Sync completed", append(fields,
				zap.String("service", serviceName),
				zap.String("method", "Sync"),
				zap.Duration("duration", time.Since(start)),
			)...)
			return
		}
		ls.done("Sync", start, err, fields...)
	}()
	return ls.svc.Sync(ctx, req)
}

func (ls *logService) Stats(ctx context.Context, userID string, days int) (stats *contribution.Stats, err error) {
	start := time.Now()
	defer func() {
		ls.done("Stats", start, err, zap.String("user_id", userID), zap.Int("days", days))
	}()
	return ls.svc.Stats(ctx, userID, days)
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
