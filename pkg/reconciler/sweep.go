package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/ethereum"
	"github.com/taskchain/taskchain/pkg/user"
)

// Sweep mirrors up to BatchSize unmirrored contributions and reward grants and
// retries pending badge mints. Per-record failures are logged and left pending.
func (r *Reconciler) Sweep(ctx context.Context) (*SweepResult, error) {
	r.logger.Info("Starting reconciliation sweep")
	start := time.Now()
	res := &SweepResult{}

	events, err := r.contributions.ListUnmirrored(ctx, r.cfg.BatchSize)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		_, err := r.SubmitContribution(ctx, ev.ID, "")
		if stop := r.count(&res.Contributions, "contribution", ev.ID, err); stop {
			return res, err
		}
	}
	metrics.PendingMirrors.WithLabelValues(string(RecordContribution)).Set(float64(len(events) - res.Contributions.Mirrored))

	grants, err := r.rewards.ListUnmirrored(ctx, r.cfg.BatchSize)
	if err != nil {
		return res, apperrors.FromStore(err)
	}
	for _, g := range grants {
		if ctx.Err() != nil {
			break
		}
		_, err := r.SubmitRewardGrant(ctx, g.ID)
		if stop := r.count(&res.Grants, "reward_grant", g.ID, err); stop {
			return res, err
		}
	}
	metrics.PendingMirrors.WithLabelValues(string(RecordRewardGrant)).Set(float64(len(grants) - res.Grants.Mirrored))

	mints, err := r.badges.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return res, apperrors.FromStore(err)
	}
	for _, m := range mints {
		if ctx.Err() != nil {
			break
		}
		err := r.retryMint(ctx, m)
		if stop := r.count(&res.Mints, "badge_mint", m.ID, err); stop {
			return res, err
		}
	}
	metrics.PendingMirrors.WithLabelValues(string(RecordBadgeMint)).Set(float64(len(mints) - res.Mints.Mirrored))

	r.logger.Info("Reconciliation sweep completed",
		zap.Int("contributions_mirrored", res.Contributions.Mirrored),
		zap.Int("contributions_failed", res.Contributions.Failed),
		zap.Int("grants_mirrored", res.Grants.Mirrored),
		zap.Int("grants_failed", res.Grants.Failed),
		zap.Int("mints_completed", res.Mints.Mirrored),
		zap.Int("mints_failed", res.Mints.Failed),
		zap.Duration("duration", time.Since(start)))

	return res, nil
}

func (r *Reconciler) retryMint(ctx context.Context, m *badge.Mint) error {
	b, ok := r.catalog.Get(m.BadgeID)
	if !ok {
		return fmt.Errorf("badge %q is no longer in the catalog", m.BadgeID)
	}
	usr, err := r.users.GetUser(ctx, m.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperrors.BadRequestError(ErrNoWallet, "user has no wallet connected")
		}
		return err
	}
	if !usr.HasWallet() {
		return apperrors.BadRequestError(ErrNoWallet, "user has no wallet connected")
	}

	_, err = r.SubmitBadgeMint(ctx, m, usr.WalletAddress, b)
	return err
}

// count records one outcome and reports whether the sweep must stop because
// submissions cannot succeed at all.
func (r *Reconciler) count(t *Tally, record, id string, err error) bool {
	switch {
	case err == nil:
		t.Mirrored++
	case errors.Is(err, ErrNoWallet):
		t.Skipped++
		r.logger.Debug("Skipping record without wallet",
			zap.String("record", record), zap.String("id", id))
	case errors.Is(err, ErrInProgress):
		t.Skipped++
	default:
		t.Failed++
		r.logger.Warn("Failed to mirror record",
			zap.String("record", record), zap.String("id", id), zap.Error(err))
		return errors.Is(err, ethereum.ErrNoSigner)
	}
	return false
}

// StartPeriodicReconciliation schedules Sweep every interval. Runs never overlap.
func (r *Reconciler) StartPeriodicReconciliation(ctx context.Context, interval time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("Periodic reconciliation failed", zap.Error(err))
			}
		}),
		gocron.WithName("reconciliation-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.Start()
	r.scheduler = s
	r.logger.Info("Started periodic reconciliation", zap.Duration("interval", interval))
	return nil
}

// Stop shuts down the periodic reconciliation scheduler and waits for a running sweep.
func (r *Reconciler) Stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		r.logger.Warn("Failed to stop reconciliation scheduler", zap.Error(err))
	}
	r.scheduler = nil
	r.logger.Info("Stopped periodic reconciliation")
}
