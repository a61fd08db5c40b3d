// Package cache holds the in-process and redis leaderboard snapshot caches.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/taskchain/taskchain/pkg/leaderboard"
)

// Memory keeps snapshots in process memory. Entries expire with their snapshot.
type Memory struct {
	items *gocache.Cache
	now   func() time.Time
}

// NewMemory creates an in-process snapshot cache.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	v, ok := m.items.Get(string(period))
	if !ok {
		return nil, leaderboard.ErrCacheMiss
	}
	return v.(*leaderboard.Snapshot), nil
}

func (m *Memory) Put(_ context.Context, snap *leaderboard.Snapshot) error {
	ttl := snap.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		m.items.Delete(string(snap.Period))
		return nil
	}
	m.items.Set(string(snap.Period), snap, ttl)
	return nil
}
