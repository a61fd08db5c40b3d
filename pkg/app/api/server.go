// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	appreconciler "github.com/taskchain/taskchain/pkg/app/reconciler"
	"github.com/taskchain/taskchain/pkg/auth"
	badgeservice "github.com/taskchain/taskchain/pkg/badge/service"
	"github.com/taskchain/taskchain/pkg/badgestore"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/contribution"
	contributionservice "github.com/taskchain/taskchain/pkg/contribution/service"
	"github.com/taskchain/taskchain/pkg/contributionstore"
	"github.com/taskchain/taskchain/pkg/ethereum"
	"github.com/taskchain/taskchain/pkg/leaderboard/cache"
	leaderboardservice "github.com/taskchain/taskchain/pkg/leaderboard/service"
	"github.com/taskchain/taskchain/pkg/leaderboardstore"
	"github.com/taskchain/taskchain/pkg/pgutil"
	reconcilerpkg "github.com/taskchain/taskchain/pkg/reconciler"
	rewardservice "github.com/taskchain/taskchain/pkg/reward/service"
	"github.com/taskchain/taskchain/pkg/rewardstore"
	userservice "github.com/taskchain/taskchain/pkg/user/service"
	"github.com/taskchain/taskchain/pkg/userstore"
	walletservice "github.com/taskchain/taskchain/pkg/wallet/service"
)

const (
	minRequestTimeout    = 60 * time.Second
	requestTimeoutMargin = 15 * time.Second
	memoryCacheCleanup   = 10 * time.Minute
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.APIServerConfig
}

// NewServer initializes new api server.
func NewServer(cfg *config.APIServerConfig) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDBContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	catalog, err := appreconciler.LoadBadgeCatalog(&cfg.Badges)
	if err != nil {
		return err
	}

	policy, err := contribution.NewPolicy(cfg.Scoring.Points)
	if err != nil {
		return fmt.Errorf("scoring policy: %w", err)
	}

	chain, err := ethereum.NewClient(&cfg.Chain, logger)
	if err != nil {
		return fmt.Errorf("create chain client: %w", err)
	}
	defer chain.Close()
	logger.Info("Connected to chain",
		zap.String("rpc_url", cfg.Chain.RPCURL),
		zap.Int64("chain_id", cfg.Chain.ChainID),
	)

	lbCache, closeCache, err := s.openLeaderboardCache(ctx, db, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	rec := appreconciler.NewReconciler(cfg, db, chain, catalog, logger)
	s.runInitialReconcile(ctx, rec, logger)

	stopReconcile := s.startPeriodicReconcile(ctx, rec, logger)
	defer stopReconcile()

	userStore := userstore.NewStore(db)
	contributionStore := contributionstore.NewStore(db)
	rewardStore := rewardstore.NewStore(db)
	badgeStore := badgestore.NewStore(db)

	contributions := contributionservice.NewService(contributionStore, userStore, policy, logger)
	badges := badgeservice.NewService(catalog, contributions, badgeStore, userStore, rec, logger)
	rewards := rewardservice.NewService(rewardStore, rec, cfg.Chain.TokenDecimals, logger)
	leaderboard := leaderboardservice.NewService(contributionStore, userStore, lbCache, cfg.Leaderboard.CacheTTL, logger)
	wallet := walletservice.NewService(userStore, rewardStore, badges, chain, logger)

	svcs := services{
		users:         userservice.NewLog(userservice.NewService(userStore), logger),
		contributions: contributionservice.NewLog(contributions, logger),
		rewards:       rewardservice.NewLog(rewards, logger),
		badges:        badgeservice.NewLog(badges, logger),
		leaderboard:   leaderboardservice.NewLog(leaderboard, logger),
		wallet:        walletservice.NewLog(wallet, logger),
		reconciler:    reconcilerpkg.NewLog(rec, logger),
	}

	authn := auth.NewJWTValidator(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.OrgClaim)
	if !authn.IsConfigured() {
		logger.Warn("auth.jwks_url is empty, every /api/v1 request will be rejected")
	}
	router := s.setupRouter(authn, svcs, logger)

	serverCfg := cfg.Server
	if timeout := requestTimeout(&cfg.Chain); serverCfg.WriteTimeout < timeout+requestTimeoutMargin {
		serverCfg.WriteTimeout = timeout + requestTimeoutMargin
		logger.Info("Raised server write timeout above the request timeout",
			zap.Duration("write_timeout", serverCfg.WriteTimeout))
	}

	err = apphttp.ServeAndWait(ctx, router, logger, &serverCfg)

	// Stop background work before deferred DB/client closes kick in.
	stopReconcile()

	return err
}

// requestTimeout bounds API requests. A server-submitted claim on an unmirrored
// grant waits for two confirmations in sequence.
func requestTimeout(chain *config.ChainConfig) time.Duration {
	timeout := 2*chain.ConfirmationTimeout + requestTimeoutMargin
	if timeout < minRequestTimeout {
		return minRequestTimeout
	}
	return timeout
}

type services struct {
	users         userservice.Service
	contributions contributionservice.Service
	rewards       rewardservice.Service
	badges        badgeservice.Service
	leaderboard   leaderboardservice.Service
	wallet        walletservice.Service
	reconciler    reconcilerpkg.Service
}

// openLeaderboardCache selects the snapshot cache named by leaderboard.cache_provider.
func (s *Server) openLeaderboardCache(
	ctx context.Context,
	db *bun.DB,
	logger *zap.Logger,
) (leaderboardservice.Cache, func(), error) {
	lcfg := s.cfg.Leaderboard

	switch lcfg.CacheProvider {
	case "redis":
		client := cache.NewRedisClient(&lcfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("Leaderboard cache: redis", zap.String("addr", lcfg.Redis.Addr))
		return cache.NewRedis(client), func() { _ = client.Close() }, nil
	case "memory":
		logger.Info("Leaderboard cache: memory")
		return cache.NewMemory(memoryCacheCleanup), func() {}, nil
	default:
		logger.Info("Leaderboard cache: postgres")
		return leaderboardstore.NewStore(db), func() {}, nil
	}
}

func (s *Server) runInitialReconcile(
	ctx context.Context,
	rec *reconcilerpkg.Reconciler,
	logger *zap.Logger,
) {
	if s.cfg.Reconciliation.InitialTimeout <= 0 {
		return
	}

	logger.Info("Running initial chain reconciliation",
		zap.Duration("timeout", s.cfg.Reconciliation.InitialTimeout),
	)

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.Reconciliation.InitialTimeout)
	defer cancel()

	if _, err := rec.Sweep(startupCtx); err != nil {
		logger.Warn("Initial reconciliation failed (will retry periodically)", zap.Error(err))
		return
	}

	logger.Info("Initial chain reconciliation completed")
}

func (s *Server) startPeriodicReconcile(
	ctx context.Context,
	rec *reconcilerpkg.Reconciler,
	logger *zap.Logger,
) func() {
	if s.cfg.Reconciliation.Interval <= 0 {
		return func() {}
	}

	if err := rec.StartPeriodicReconciliation(ctx, s.cfg.Reconciliation.Interval); err != nil {
		logger.Error("Failed to start periodic reconciliation", zap.Error(err))
		return func() {}
	}

	// Return stopper for deterministic shutdown ordering.
	return rec.Stop
}

func (s *Server) setupRouter(authn auth.Authenticator, svcs services, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(&s.cfg.Chain)))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	admin := auth.RequireOrg(s.cfg.Auth.AdminOrg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(authn, logger))

		userservice.RegisterRoutes(r, svcs.users, logger)
		contributionservice.RegisterRoutes(r, svcs.contributions, logger, admin)
		rewardservice.RegisterRoutes(r, svcs.rewards, logger, admin)
		badgeservice.RegisterRoutes(r, svcs.badges, logger)
		leaderboardservice.RegisterRoutes(r, svcs.leaderboard, logger)
		walletservice.RegisterRoutes(r, svcs.wallet, logger)
		reconcilerpkg.RegisterRoutes(r, svcs.reconciler, logger, admin)
	})

	return r
}
