package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/user"
)

// memStore is an in-memory Store enforcing the natural key like the unique index does.
type memStore struct {
	mu     sync.Mutex
	events []*contribution.Event

	InsertErr error
}

func (m *memStore) InsertEvent(_ context.Context, ev *contribution.Event) (*contribution.Event, bool, error) {
	if m.InsertErr != nil {
		return nil, false, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.UserID == ev.UserID && e.ExternalID == ev.ExternalID && e.Kind == ev.Kind {
			cp := *e
			return &cp, false, nil
		}
	}
	cp := *ev
	m.events = append(m.events, &cp)
	out := cp
	return &out, true, nil
}

func (m *memStore) ListEvents(_ context.Context, userID string, limit int) ([]*contribution.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*contribution.Event
	for _, e := range m.events {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Aggregate(_ context.Context, f contribution.Filter) ([]contribution.AggregateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct {
		user string
		kind contribution.Kind
	}
	groups := map[key]*contribution.AggregateRow{}
	var order []key
	for _, e := range m.events {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.Since != nil && e.CreatedAt.Before(*f.Since) {
			continue
		}
		if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
			continue
		}
		k := key{e.UserID, e.Kind}
		row, ok := groups[k]
		if !ok {
			row = &contribution.AggregateRow{UserID: e.UserID, Kind: e.Kind, FirstAt: e.CreatedAt}
			groups[k] = row
			order = append(order, k)
		}
		row.Count++
		row.Points += e.Points
		if e.CreatedAt.Before(row.FirstAt) {
			row.FirstAt = e.CreatedAt
		}
	}

	out := make([]contribution.AggregateRow, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out, nil
}

func (m *memStore) DailyHistory(_ context.Context, userID string, since time.Time) ([]contribution.DailyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDay := map[string]*contribution.DailyCount{}
	for _, e := range m.events {
		if e.UserID != userID || e.CreatedAt.Before(since) {
			continue
		}
		d := e.CreatedAt.UTC().Format(time.DateOnly)
		dc, ok := byDay[d]
		if !ok {
			dc = &contribution.DailyCount{Date: d}
			byDay[d] = dc
		}
		dc.Contributions++
		dc.Points += e.Points
	}

	out := make([]contribution.DailyCount, 0, len(byDay))
	for _, dc := range byDay {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func containsKind(kinds []contribution.Kind, k contribution.Kind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// mockUsers resolves GitHub usernames from a fixed table.
type mockUsers struct {
	byName map[string]string
	calls  int
}

func (m *mockUsers) GetUserByGithubUsername(_ context.Context, username string) (*user.User, error) {
	m.calls++
	id, ok := m.byName[username]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: id, GithubUsername: username}, nil
}
