package reconciler

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/taskchain/taskchain/pkg/badge"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/ethereum"
	"github.com/taskchain/taskchain/pkg/ethereum/contracts"
	"github.com/taskchain/taskchain/pkg/reward"
	"github.com/taskchain/taskchain/pkg/user"
)

type sentTx struct {
	op     string
	to     common.Address
	kind   string
	points int
	amount decimal.Decimal
	index  int64
	hash   common.Hash
}

// fakeLedger confirms every submission immediately unless waitErr or sendErr is
// set. Transactions land on chain in send order; holds delays a receipt.
type fakeLedger struct {
	mu        sync.Mutex
	n         int64
	sent      []sentTx
	receipts  map[common.Hash]*types.Receipt
	states    map[common.Hash]ethereum.TxState
	holds     map[common.Hash]chan struct{}
	signer    common.Address
	sendErr   error
	waitErr   error
	verifyErr error
	indexErr  error
	tokenID   *big.Int
}

func newFakeLedger(signer common.Address) *fakeLedger {
	return &fakeLedger{
		receipts: map[common.Hash]*types.Receipt{},
		states:   map[common.Hash]ethereum.TxState{},
		holds:    map[common.Hash]chan struct{}{},
		signer:   signer,
		tokenID:  big.NewInt(7),
	}
}

// txHashFor is the hash the ledger assigns to its n-th submission, starting at 1.
func txHashFor(n int64) common.Hash {
	return common.BigToHash(big.NewInt(0x1000 + n))
}

func (f *fakeLedger) hold(hash common.Hash) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[hash] = ch
	return ch
}

func (f *fakeLedger) record(tx sentTx) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.n++
	tx.hash = txHashFor(f.n)
	f.sent = append(f.sent, tx)
	f.receipts[tx.hash] = &types.Receipt{TxHash: tx.hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(f.n)}
	f.states[tx.hash] = ethereum.TxStateConfirmed
	return tx.hash, nil
}

func (f *fakeLedger) sentOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, tx := range f.sent {
		out[i] = tx.op
	}
	return out
}

func (f *fakeLedger) LogContribution(_ context.Context, to common.Address, kind string, points int) (common.Hash, error) {
	return f.record(sentTx{op: ethereum.OpLogContribution, to: to, kind: kind, points: points})
}

func (f *fakeLedger) AddReward(_ context.Context, to common.Address, amount decimal.Decimal) (common.Hash, error) {
	return f.record(sentTx{op: ethereum.OpAddReward, to: to, amount: amount})
}

func (f *fakeLedger) ClaimReward(_ context.Context, index int64) (common.Hash, error) {
	return f.record(sentTx{op: ethereum.OpClaimReward, index: index})
}

func (f *fakeLedger) MintBadge(_ context.Context, to common.Address, _, _, milestone string) (common.Hash, error) {
	return f.record(sentTx{op: ethereum.OpMintBadge, to: to, kind: milestone})
}

func (f *fakeLedger) WaitForReceipt(ctx context.Context, _ string, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	ch, held := f.holds[hash]
	f.mu.Unlock()
	if held {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		err := f.waitErr
		f.waitErr = nil
		return nil, err
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.ErrReconciliationTimeout
	}
	return r, nil
}

func (f *fakeLedger) TxState(_ context.Context, hash common.Hash) (ethereum.TxState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[hash], nil
}

func (f *fakeLedger) MintedTokenID(_ *types.Receipt, _ common.Address) (*big.Int, error) {
	if f.tokenID == nil {
		return nil, contracts.ErrNoMintLog
	}
	return f.tokenID, nil
}

func (f *fakeLedger) VerifyClaim(_ context.Context, _ common.Hash, _ common.Address, _ int64) error {
	return f.verifyErr
}

func (f *fakeLedger) RewardIndex(_ context.Context, receipt *types.Receipt, to common.Address) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	var index int64
	for _, tx := range f.sent {
		if tx.op != ethereum.OpAddReward || tx.to != to {
			continue
		}
		if tx.hash == receipt.TxHash {
			return index, nil
		}
		index++
	}
	return 0, ethereum.ErrRewardIndex
}

func (f *fakeLedger) Address() common.Address {
	return f.signer
}

type memContributions struct {
	mu     sync.Mutex
	events map[string]*contribution.Event
}

func newMemContributions(events ...*contribution.Event) *memContributions {
	m := &memContributions{events: map[string]*contribution.Event{}}
	for _, ev := range events {
		m.events[ev.ID] = ev
	}
	return m
}

func (m *memContributions) GetEvent(_ context.Context, id string) (*contribution.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, contribution.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memContributions) ListUnmirrored(_ context.Context, limit int) ([]*contribution.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*contribution.Event
	for _, ev := range m.events {
		if !ev.Mirrored() {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memContributions) MarkMirrored(_ context.Context, id, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return contribution.ErrNotFound
	}
	if ev.Mirrored() {
		return contribution.ErrAlreadyMirrored
	}
	ev.OnChainTxHash = txHash
	return nil
}

type memRewards struct {
	mu     sync.Mutex
	grants map[string]*reward.Grant
}

func newMemRewards(grants ...*reward.Grant) *memRewards {
	m := &memRewards{grants: map[string]*reward.Grant{}}
	for _, g := range grants {
		m.grants[g.ID] = g
	}
	return m
}

func (m *memRewards) GetGrant(_ context.Context, id string) (*reward.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memRewards) ListUnmirrored(_ context.Context, limit int) ([]*reward.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reward.Grant
	for _, g := range m.grants {
		if g.GrantTxHash == "" {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRewards) MarkMirrored(_ context.Context, id, txHash string, chainIndex int64) (*reward.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	if g.GrantTxHash != "" {
		return nil, reward.ErrAlreadyMirrored
	}
	g.GrantTxHash = txHash
	g.ChainIndex = &chainIndex
	cp := *g
	return &cp, nil
}

type memBadges struct {
	mu    sync.Mutex
	mints map[string]*badge.Mint
}

func newMemBadges(mints ...*badge.Mint) *memBadges {
	m := &memBadges{mints: map[string]*badge.Mint{}}
	for _, mint := range mints {
		m.mints[mint.ID] = mint
	}
	return m
}

func (m *memBadges) ListPending(_ context.Context, limit int) ([]*badge.Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*badge.Mint
	for _, mint := range m.mints {
		if !mint.Minted() {
			cp := *mint
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBadges) MarkMinted(_ context.Context, id, txHash, tokenID string, at time.Time) (*badge.Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mint, ok := m.mints[id]
	if !ok {
		return nil, badge.ErrNotFound
	}
	if mint.Minted() {
		return nil, badge.ErrAlreadyMinted
	}
	mint.TxHash = txHash
	mint.TokenID = tokenID
	mint.MintedAt = &at
	cp := *mint
	return &cp, nil
}

type mapUsers map[string]*user.User

func (m mapUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

type memSubmissions struct {
	mu   sync.Mutex
	subs map[string]*Submission
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{subs: map[string]*Submission{}}
}

func (m *memSubmissions) GetSubmission(_ context.Context, recordType RecordType, recordID string) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[string(recordType)+":"+recordID]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubmissions) SaveSubmission(_ context.Context, sub *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[string(sub.RecordType)+":"+sub.RecordID] = &cp
	return nil
}

func (m *memSubmissions) DeleteSubmission(_ context.Context, recordType RecordType, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, string(recordType)+":"+recordID)
	return nil
}

func (m *memSubmissions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
