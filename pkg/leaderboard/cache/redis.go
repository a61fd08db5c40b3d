package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/leaderboard"
)

const keyPrefix = "taskchain:leaderboard:"

// Redis shares snapshots between API instances.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient creates a go-redis client from config.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedis wraps client as a snapshot cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (r *Redis) Get(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	raw, err := r.client.Get(ctx, keyPrefix+string(period)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, leaderboard.ErrCacheMiss
		}
		return nil, apperrors.WrapUnavailable("failed to read leaderboard snapshot", err)
	}

	var snap leaderboard.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard snapshot: %w", err)
	}
	return &snap, nil
}

func (r *Redis) Put(ctx context.Context, snap *leaderboard.Snapshot) error {
	ttl := snap.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard snapshot: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+string(snap.Period), raw, ttl).Err(); err != nil {
		return apperrors.WrapUnavailable("failed to write leaderboard snapshot", err)
	}
	return nil
}

// Ping checks the redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
