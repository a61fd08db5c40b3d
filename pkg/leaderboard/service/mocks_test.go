package service

import (
	"context"
	"sync"
	"time"

	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/leaderboard"
	"github.com/taskchain/taskchain/pkg/user"
)

// eventAggregator aggregates a fixed event list the way the store's GROUP BY does.
type eventAggregator struct {
	mu     sync.Mutex
	events []*contribution.Event
	calls  int
	err    error
}

func (a *eventAggregator) add(userID string, kind contribution.Kind, points int, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, &contribution.Event{UserID: userID, Kind: kind, Points: points, CreatedAt: at})
}

func (a *eventAggregator) Aggregate(_ context.Context, filter contribution.Filter) ([]contribution.AggregateRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}

	type key struct {
		user string
		kind contribution.Kind
	}
	groups := map[key]*contribution.AggregateRow{}
	for _, ev := range a.events {
		if filter.Since != nil && ev.CreatedAt.Before(*filter.Since) {
			continue
		}
		k := key{ev.UserID, ev.Kind}
		row, ok := groups[k]
		if !ok {
			row = &contribution.AggregateRow{UserID: ev.UserID, Kind: ev.Kind, FirstAt: ev.CreatedAt}
			groups[k] = row
		}
		row.Count++
		row.Points += ev.Points
		if ev.CreatedAt.Before(row.FirstAt) {
			row.FirstAt = ev.CreatedAt
		}
	}

	out := make([]contribution.AggregateRow, 0, len(groups))
	for _, row := range groups {
		out = append(out, *row)
	}
	return out, nil
}

type mockUsers map[string]*user.User

func (m mockUsers) ListUsersByIDs(_ context.Context, ids []string) (map[string]*user.User, error) {
	out := make(map[string]*user.User, len(ids))
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// mapCache is a Cache with injectable failures.
type mapCache struct {
	mu     sync.Mutex
	snaps  map[leaderboard.Period]*leaderboard.Snapshot
	GetErr error
	PutErr error
	puts   int
}

func newMapCache() *mapCache {
	return &mapCache{snaps: map[leaderboard.Period]*leaderboard.Snapshot{}}
}

func (c *mapCache) Get(_ context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	snap, ok := c.snaps[period]
	if !ok {
		return nil, leaderboard.ErrCacheMiss
	}
	return snap, nil
}

func (c *mapCache) Put(_ context.Context, snap *leaderboard.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.PutErr != nil {
		return c.PutErr
	}
	c.snaps[snap.Period] = snap
	return nil
}
