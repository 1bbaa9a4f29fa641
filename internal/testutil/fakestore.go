package testutil

import (
	"context"
	"math/big"
	"sync"
	"time"

	"lucky-agents/internal/store"
)

// FakeStore is an in-memory registry datastore for tests. It mirrors the
// unique-owner constraint and history append behavior of the real store.
type FakeStore struct {
	mu      sync.Mutex
	order   []string // agent ids in insertion order
	byID    map[string]*store.AgentWallet
	byOwner map[string]string
	history map[string][]store.HistoryEntry

	InsertErr error
	ListErr   error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		byID:    map[string]*store.AgentWallet{},
		byOwner: map[string]string{},
		history: map[string][]store.HistoryEntry{},
	}
}

func cloneWallet(w *store.AgentWallet) *store.AgentWallet {
	out := *w
	out.Config.MaxBetPerRound = cloneBig(w.Config.MaxBetPerRound)
	out.Balances = store.AgentBalances{
		Deposited:     cloneBig(w.Balances.Deposited),
		Current:       cloneBig(w.Balances.Current),
		TotalWinnings: cloneBig(w.Balances.TotalWinnings),
		TotalLosses:   cloneBig(w.Balances.TotalLosses),
	}
	if w.Stats.LastPlayedAt != nil {
		ts := *w.Stats.LastPlayedAt
		out.Stats.LastPlayedAt = &ts
	}
	return &out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (f *FakeStore) InsertWallet(_ context.Context, w *store.AgentWallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return f.InsertErr
	}
	if _, ok := f.byOwner[w.OwnerAddress]; ok {
		return store.ErrDuplicate
	}
	cp := cloneWallet(w)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.byID[cp.ID] = cp
	f.byOwner[cp.OwnerAddress] = cp.ID
	f.order = append(f.order, cp.ID)
	return nil
}

func (f *FakeStore) GetWalletByOwner(_ context.Context, owner string) (*store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byOwner[owner]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneWallet(f.byID[id]), nil
}

func (f *FakeStore) GetWalletByID(_ context.Context, id string) (*store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneWallet(w), nil
}

func (f *FakeStore) ListEnabledWallets(context.Context) ([]store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]store.AgentWallet, 0)
	for _, id := range f.order {
		if f.byID[id].IsEnabled {
			out = append(out, *cloneWallet(f.byID[id]))
		}
	}
	return out, nil
}

func (f *FakeStore) ListChatWallets(context.Context) ([]store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]store.AgentWallet, 0)
	for _, id := range f.order {
		w := f.byID[id]
		if w.IsEnabled && w.Config.AutoChatEnabled {
			out = append(out, *cloneWallet(w))
		}
	}
	return out, nil
}

func (f *FakeStore) ListWallets(_ context.Context, limit, offset int) ([]store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	out := make([]store.AgentWallet, 0)
	for i := offset; i < len(f.order) && len(out) < limit; i++ {
		out = append(out, *cloneWallet(f.byID[f.order[i]]))
	}
	return out, nil
}

func (f *FakeStore) SetEnabled(_ context.Context, owner string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byOwner[owner]
	if !ok {
		return store.ErrNotFound
	}
	f.byID[id].IsEnabled = enabled
	return nil
}

func (f *FakeStore) UpdateConfig(_ context.Context, owner string, patch store.ConfigPatch) (*store.AgentWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byOwner[owner]
	if !ok {
		return nil, store.ErrNotFound
	}
	w := f.byID[id]
	if patch.DisplayName != nil {
		w.Config.DisplayName = *patch.DisplayName
	}
	if patch.Persona != nil {
		w.Config.Persona = *patch.Persona
	}
	if patch.CustomPersona != nil {
		w.Config.CustomPersona = *patch.CustomPersona
	}
	if patch.PlayStyle != nil {
		w.Config.PlayStyle = *patch.PlayStyle
	}
	if patch.AutoChatEnabled != nil {
		w.Config.AutoChatEnabled = *patch.AutoChatEnabled
	}
	if patch.MaxBetPerRound != nil {
		w.Config.MaxBetPerRound = new(big.Int).Set(patch.MaxBetPerRound)
	}
	return cloneWallet(w), nil
}

func (f *FakeStore) RecordDeposit(_ context.Context, agentID string, amount *big.Int, txHash, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[agentID]
	if !ok {
		return store.ErrNotFound
	}
	w.Balances.Deposited = new(big.Int).Add(cloneBig(w.Balances.Deposited), amount)
	w.Balances.Current = new(big.Int).Add(cloneBig(w.Balances.Current), amount)
	f.appendHistory(agentID, store.HistoryDeposit, amount, txHash, description)
	return nil
}

func (f *FakeStore) RecordGameResult(_ context.Context, agentID string, won bool, amount *big.Int, txHash, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[agentID]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	w.Stats.GamesPlayed++
	w.Stats.LastPlayedAt = &now
	if won {
		w.Stats.GamesWon++
		w.Balances.TotalWinnings = new(big.Int).Add(cloneBig(w.Balances.TotalWinnings), amount)
		f.appendHistory(agentID, store.HistoryWin, amount, txHash, description)
	} else {
		w.Balances.TotalLosses = new(big.Int).Add(cloneBig(w.Balances.TotalLosses), amount)
		f.appendHistory(agentID, store.HistoryBet, amount, txHash, description)
	}
	return nil
}

func (f *FakeStore) RecordWithdrawal(_ context.Context, agentID string, amount *big.Int, txHash, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[agentID]; !ok {
		return store.ErrNotFound
	}
	f.appendHistory(agentID, store.HistoryWithdraw, amount, txHash, description)
	return nil
}

func (f *FakeStore) SyncBalance(_ context.Context, agentID string, current *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[agentID]
	if !ok {
		return store.ErrNotFound
	}
	w.Balances.Current = new(big.Int).Set(current)
	return nil
}

func (f *FakeStore) ListHistory(_ context.Context, agentID string, limit, offset int) ([]store.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[agentID]
	if offset >= len(entries) {
		return []store.HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]store.HistoryEntry, end-offset)
	copy(out, entries[offset:end])
	return out, nil
}

func (f *FakeStore) appendHistory(agentID, entryType string, amount *big.Int, txHash, description string) {
	f.history[agentID] = append(f.history[agentID], store.HistoryEntry{
		ID:          store.NewID(),
		AgentID:     agentID,
		Type:        entryType,
		Amount:      cloneBig(amount),
		TxHash:      txHash,
		Description: description,
		CreatedAt:   time.Now(),
	})
}

// WalletCount reports how many wallets exist, for idempotency assertions.
func (f *FakeStore) WalletCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
