package testutil

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"lucky-agents/internal/chain"
)

// FakeGateway is an in-memory chain.Gateway. Joins and transfers are
// recorded rather than submitted anywhere.
type FakeGateway struct {
	mu sync.Mutex

	Round    chain.RoundInfo
	RoundErr error

	joined   map[common.Address]bool
	balances map[common.Address]*big.Int

	JoinErr   error
	SendErr   error
	WaitErr   error
	joinCalls int
	sendCalls []FakeTransfer
}

type FakeTransfer struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		joined:   map[common.Address]bool{},
		balances: map[common.Address]*big.Int{},
	}
}

func (f *FakeGateway) SetBalance(addr common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = new(big.Int).Set(wei)
}

func (f *FakeGateway) SetJoined(addr common.Address, joined bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined[addr] = joined
}

func (f *FakeGateway) JoinCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinCalls
}

func (f *FakeGateway) Transfers() []FakeTransfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeTransfer, len(f.sendCalls))
	copy(out, f.sendCalls)
	return out
}

func (f *FakeGateway) JoinRound(_ context.Context, key *ecdsa.PrivateKey, value *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.JoinErr != nil {
		return "", f.JoinErr
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	f.joinCalls++
	f.joined[from] = true
	if bal, ok := f.balances[from]; ok {
		f.balances[from] = new(big.Int).Sub(bal, value)
	}
	return fmt.Sprintf("0xjoin%d", f.joinCalls), nil
}

func (f *FakeGateway) HasJoined(_ context.Context, addr common.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined[addr], nil
}

func (f *FakeGateway) CurrentRoundInfo(context.Context) (chain.RoundInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoundErr != nil {
		return chain.RoundInfo{}, f.RoundErr
	}
	return f.Round, nil
}

func (f *FakeGateway) SendValue(_ context.Context, key *ecdsa.PrivateKey, to common.Address, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	f.sendCalls = append(f.sendCalls, FakeTransfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	if bal, ok := f.balances[from]; ok {
		f.balances[from] = new(big.Int).Sub(bal, amount)
	}
	return fmt.Sprintf("0xsend%d", len(f.sendCalls)), nil
}

func (f *FakeGateway) BalanceAt(_ context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bal, ok := f.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (f *FakeGateway) WaitMined(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.WaitErr
}
