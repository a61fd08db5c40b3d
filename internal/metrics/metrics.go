package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContributionsRecorded counts ingestion outcomes by kind and result (created, duplicate, skipped)
	ContributionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskchain_contributions_recorded_total",
			Help: "Total number of contribution candidates processed",
		},
		[]string{"kind", "result"},
	)

	// PointsAwarded counts points assigned to newly recorded contributions
	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskchain_points_awarded_total",
			Help: "Total number of points awarded",
		},
		[]string{"kind"},
	)

	// RewardClaims counts reward claim attempts by result
	RewardClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskchain_reward_claims_total",
			Help: "Total number of reward claim attempts",
		},
		[]string{"result"},
	)

	// LeaderboardRequests counts leaderboard reads by period and cache outcome
	LeaderboardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskchain_leaderboard_requests_total",
			Help: "Total number of leaderboard reads",
		},
		[]string{"period", "cache"},
	)

	// LeaderboardComputeDuration tracks snapshot recomputation time
	LeaderboardComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskchain_leaderboard_compute_duration_seconds",
			Help:    "Leaderboard recomputation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period"},
	)

	// ChainSubmissions counts external ledger submissions by operation and status
	ChainSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskchain_chain_submissions_total",
			Help: "Total number of external ledger submissions",
		},
		[]string{"operation", "status"},
	)

	// ChainConfirmationDuration tracks time from submission to receipt
	ChainConfirmationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskchain_chain_confirmation_duration_seconds",
			Help:    "Time waiting for transaction confirmation in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// PendingMirrors tracks records waiting for on-chain mirroring after the last sweep
	PendingMirrors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskchain_pending_mirrors",
			Help: "Number of ledger records not yet mirrored on chain",
		},
		[]string{"record"},
	)

	// BalanceReadFailures counts wallet balance reads that fell back to the placeholder
	BalanceReadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskchain_balance_read_failures_total",
			Help: "Total number of failed on-chain balance reads",
		},
	)
)
