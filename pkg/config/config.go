package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file.
const (
	EnvDatabasePassword = "TASKCHAIN_DATABASE_PASSWORD"
	EnvSignerKey        = "TASKCHAIN_SIGNER_KEY"
	EnvRedisPassword    = "TASKCHAIN_REDIS_PASSWORD"
)

// APIServerConfig represents the TaskChain API server configuration
type APIServerConfig struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Chain          ChainConfig          `yaml:"chain"`
	Scoring        ScoringConfig        `yaml:"scoring"`
	Leaderboard    LeaderboardConfig    `yaml:"leaderboard"`
	Badges         BadgesConfig         `yaml:"badges"`
	Auth           AuthConfig           `yaml:"auth"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Monitoring     MonitoringConfig     `yaml:"monitoring"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"taskchain"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"taskchain" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-full"`
}

// ChainConfig contains settings for the Celo (EVM) ledger the reconciler talks to
type ChainConfig struct {
	RPCURL              string        `yaml:"rpc_url" validate:"required,url"`
	ChainID             int64         `yaml:"chain_id" default:"11142220" validate:"gt=0"`
	PerformanceTracker  string        `yaml:"performance_tracker" validate:"required,eth_addr"`
	RewardPool          string        `yaml:"reward_pool" validate:"required,eth_addr"`
	BadgeNFT            string        `yaml:"badge_nft" validate:"required,eth_addr"`
	RewardToken         string        `yaml:"reward_token" validate:"omitempty,eth_addr"`
	SignerPrivateKey    string        `yaml:"signer_private_key"`
	GasLimit            uint64        `yaml:"gas_limit" default:"300000"`
	MaxGasPrice         string        `yaml:"max_gas_price"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout" default:"60s"`
	PollInterval        time.Duration `yaml:"poll_interval" default:"2s"`
	TokenDecimals       int32         `yaml:"token_decimals" default:"18" validate:"gte=0,lte=36"`
}

// ScoringConfig maps contribution kinds to point values.
// Unknown kinds are rejected at ingestion.
type ScoringConfig struct {
	Points map[string]int `yaml:"points"`
}

// LeaderboardConfig contains leaderboard snapshot cache settings
type LeaderboardConfig struct {
	CacheTTL      time.Duration `yaml:"cache_ttl" default:"1h"`
	CacheProvider string        `yaml:"cache_provider" default:"postgres" validate:"oneof=postgres redis memory"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// BadgesConfig points at an optional badge catalog file
type BadgesConfig struct {
	CatalogFile string `yaml:"catalog_file"`
}

// AuthConfig contains identity provider settings for bearer token validation
type AuthConfig struct {
	JWKSURL  string `yaml:"jwks_url" validate:"omitempty,url"`
	Issuer   string `yaml:"issuer"`
	OrgClaim string `yaml:"org_claim" default:"org_id"`
	AdminOrg string `yaml:"admin_org"`
}

// ReconciliationConfig contains settings for the on-chain mirroring sweep
type ReconciliationConfig struct {
	InitialTimeout time.Duration `yaml:"initial_timeout" default:"2m"`
	Interval       time.Duration `yaml:"interval" default:"5m"`
	BatchSize      int           `yaml:"batch_size" default:"50" validate:"gt=0"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// DefaultPoints is the point table used when the config file defines none.
func DefaultPoints() map[string]int {
	return map[string]int{
		"issue_closed":  10,
		"pr_opened":     5,
		"pr_merged":     15,
		"commit_pushed": 2,
	}
}

// LoadAPIServer loads API server configuration from file
func LoadAPIServer(configPath string) (*APIServerConfig, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes, defaults and validates a YAML config document.
func Parse(raw []byte) (*APIServerConfig, error) {
	var cfg APIServerConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if len(cfg.Scoring.Points) == 0 {
		cfg.Scoring.Points = DefaultPoints()
	}
	applyEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	for kind, points := range cfg.Scoring.Points {
		if points < 0 {
			return nil, fmt.Errorf("config validation failed: scoring.points.%s must not be negative", kind)
		}
	}

	return &cfg, nil
}

func applyEnv(cfg *APIServerConfig) {
	if v := os.Getenv(EnvDatabasePassword); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv(EnvSignerKey); v != "" {
		cfg.Chain.SignerPrivateKey = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		cfg.Leaderboard.Redis.Password = v
	}
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
