package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskchain/taskchain/pkg/reward"
)

// memStore is an in-memory Store with a conditional claim update.
type memStore struct {
	mu     sync.Mutex
	grants map[string]*reward.Grant
}

func newMemStore() *memStore {
	return &memStore{grants: map[string]*reward.Grant{}}
}

func (m *memStore) InsertGrant(_ context.Context, g *reward.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.grants[g.ID] = &cp
	return nil
}

func (m *memStore) GetGrant(_ context.Context, id string) (*reward.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) ListGrants(_ context.Context, userID string) ([]*reward.Grant, error) {
	out := m.filter(userID, false)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListUnclaimed(_ context.Context, userID string) ([]*reward.Grant, error) {
	out := m.filter(userID, true)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) filter(userID string, unclaimedOnly bool) []*reward.Grant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reward.Grant
	for _, g := range m.grants {
		if g.UserID != userID || (unclaimedOnly && g.Claimed()) {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	return out
}

func (m *memStore) MarkClaimed(_ context.Context, id, txHash string, at time.Time) (*reward.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	if g.Claimed() {
		return nil, reward.ErrAlreadyClaimed
	}
	g.ClaimedAt = &at
	g.ClaimTxHash = txHash
	cp := *g
	return &cp, nil
}

// mockClaimer records which grants were submitted or verified.
type mockClaimer struct {
	SubmitFunc func(ctx context.Context, g *reward.Grant) (string, error)
	VerifyFunc func(ctx context.Context, g *reward.Grant, txHash string) error

	submitted []string
	verified  []string
	completed []string
}

func (m *mockClaimer) SubmitRewardClaim(ctx context.Context, g *reward.Grant) (string, error) {
	m.submitted = append(m.submitted, g.ID)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, g)
	}
	return "0xsubmitted", nil
}

func (m *mockClaimer) VerifyRewardClaim(ctx context.Context, g *reward.Grant, txHash string) error {
	m.verified = append(m.verified, g.ID)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, g, txHash)
	}
	return nil
}

func (m *mockClaimer) CompleteRewardClaim(_ context.Context, grantID string) {
	m.completed = append(m.completed, grantID)
}
