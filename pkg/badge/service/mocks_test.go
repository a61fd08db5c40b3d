package service

import (
	"context"
	"sync"
	"time"

	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/user"
)

// fixedCounter returns preset counts per user.
type fixedCounter struct {
	counts map[string]*contribution.Counts
	err    error
}

func (f *fixedCounter) AggregateCounts(_ context.Context, userID string, _ []contribution.Kind, _ *time.Time) (*contribution.Counts, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.counts[userID]; ok {
		return c, nil
	}
	return contribution.NewCounts(userID), nil
}

// memStore is an in-memory Store keyed on (user, badge) like the unique index.
type memStore struct {
	mu    sync.Mutex
	mints map[string]*badge.Mint
}

func newMemStore() *memStore {
	return &memStore{mints: map[string]*badge.Mint{}}
}

func (m *memStore) CreatePendingMint(_ context.Context, mint *badge.Mint) (*badge.Mint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mint.UserID + "/" + mint.BadgeID
	if existing, ok := m.mints[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *mint
	m.mints[key] = &cp
	out := cp
	return &out, true, nil
}

func (m *memStore) ListMints(_ context.Context, userID string) ([]*badge.Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*badge.Mint
	for _, mint := range m.mints {
		if mint.UserID == userID {
			cp := *mint
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) markMinted(userID, badgeID, txHash, tokenID string) *badge.Mint {
	m.mu.Lock()
	defer m.mu.Unlock()
	mint := m.mints[userID+"/"+badgeID]
	at := time.Now().UTC()
	mint.TxHash = txHash
	mint.TokenID = tokenID
	mint.MintedAt = &at
	cp := *mint
	return &cp
}

type mockUsers map[string]*user.User

func (m mockUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

// mockMinter marks the pending record minted in store unless MintFunc is set.
type mockMinter struct {
	store    *memStore
	MintFunc func(ctx context.Context, m *badge.Mint, wallet string, b badge.Badge) (*badge.Mint, error)

	calls   int
	wallets []string
}

func (m *mockMinter) SubmitBadgeMint(ctx context.Context, mint *badge.Mint, wallet string, b badge.Badge) (*badge.Mint, error) {
	m.calls++
	m.wallets = append(m.wallets, wallet)
	if m.MintFunc != nil {
		return m.MintFunc(ctx, mint, wallet, b)
	}
	return m.store.markMinted(mint.UserID, mint.BadgeID, "0xminted", "7"), nil
}
