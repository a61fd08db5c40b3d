// Package reconciler implements app.Runner for the standalone reconciliation worker.
package reconciler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/badgestore"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/contributionstore"
	"github.com/taskchain/taskchain/pkg/ethereum"
	"github.com/taskchain/taskchain/pkg/pgutil"
	reconcilerpkg "github.com/taskchain/taskchain/pkg/reconciler"
	"github.com/taskchain/taskchain/pkg/rewardstore"
	"github.com/taskchain/taskchain/pkg/submissionstore"
	"github.com/taskchain/taskchain/pkg/userstore"
)

const defaultHTTPMiddlewareTimeout = 60 * time.Second

// Server holds configuration for the reconciliation worker.
type Server struct {
	cfg  *config.APIServerConfig
	once bool
}

// NewServer initializes a new worker. With once set, Run performs a single
// sweep and returns instead of serving.
func NewServer(cfg *config.APIServerConfig, once bool) *Server {
	return &Server{cfg: cfg, once: once}
}

// Run starts periodic sweeps and the operational HTTP server.
// It blocks until an OS shutdown signal is received or a fatal server error occurs.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting TaskChain reconciliation worker", zap.Bool("once", s.once))

	db, err := pgutil.ConnectDBContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Database connection established")

	catalog, err := LoadBadgeCatalog(&cfg.Badges)
	if err != nil {
		return err
	}

	chain, err := ethereum.NewClient(&cfg.Chain, logger)
	if err != nil {
		return fmt.Errorf("initialize chain client: %w", err)
	}
	defer chain.Close()

	rec := NewReconciler(cfg, db, chain, catalog, logger)

	if s.once {
		res, err := rec.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("reconciliation sweep: %w", err)
		}
		logger.Info("Single sweep finished",
			zap.Int("contributions_pending", res.Contributions.Failed+res.Contributions.Skipped),
			zap.Int("grants_pending", res.Grants.Failed+res.Grants.Skipped),
			zap.Int("mints_pending", res.Mints.Failed+res.Mints.Skipped))
		return nil
	}

	var ready atomic.Bool
	if err := rec.StartPeriodicReconciliation(ctx, cfg.Reconciliation.Interval); err != nil {
		return err
	}
	defer rec.Stop()
	ready.Store(true)

	return apphttp.ServeAndWait(ctx, s.newRouter(&ready, logger), logger, &cfg.Server)
}

func (s *Server) newRouter(ready *atomic.Bool, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	return r
}

// NewReconciler wires the chain mirroring reconciler over the PostgreSQL stores.
func NewReconciler(
	cfg *config.APIServerConfig,
	db *bun.DB,
	chain *ethereum.Client,
	catalog *badge.Catalog,
	logger *zap.Logger,
) *reconcilerpkg.Reconciler {
	return reconcilerpkg.New(
		&cfg.Reconciliation,
		chain,
		contributionstore.NewStore(db),
		rewardstore.NewStore(db),
		badgestore.NewStore(db),
		catalog,
		userstore.NewStore(db),
		submissionstore.NewStore(db),
		logger,
	)
}

// LoadBadgeCatalog reads the configured catalog file, falling back to the built-in catalog.
func LoadBadgeCatalog(cfg *config.BadgesConfig) (*badge.Catalog, error) {
	catalog, err := badge.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}
	return catalog, nil
}
