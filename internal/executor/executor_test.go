package executor

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"lucky-agents/internal/config"
	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/store"
	"lucky-agents/internal/testutil"
)

type fixture struct {
	exec    *Executor
	gateway *testutil.FakeGateway
	db      *testutil.FakeStore
	agent   *store.AgentWallet
	addr    common.Address
}

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		EntryFeeGwei:   100,
		GasBufferGwei:  10,
		ConfirmTimeout: time.Second,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vault, err := keyvault.NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encrypted, err := vault.Encrypt([]byte(hex.EncodeToString(crypto.FromECDSA(key))))
	if err != nil {
		t.Fatalf("encrypt key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	db := testutil.NewFakeStore()
	agent := &store.AgentWallet{
		ID:           store.NewID(),
		OwnerAddress: "0x00000000000000000000000000000000DeaDBeef",
		AgentAddress: addr.Hex(),
		EncryptedKey: encrypted,
		IsEnabled:    true,
	}
	if err := db.InsertWallet(context.Background(), agent); err != nil {
		t.Fatalf("insert wallet: %v", err)
	}

	gateway := testutil.NewFakeGateway()
	return &fixture{
		exec:    New(gateway, vault, db, testChainConfig()),
		gateway: gateway,
		db:      db,
		agent:   agent,
		addr:    addr,
	}
}

func TestJoinRoundSkipsWhenAlreadyJoined(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetJoined(f.addr, true)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))

	_, err := f.exec.JoinRound(context.Background(), f.agent, 7)
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	if f.gateway.JoinCalls() != 0 {
		t.Fatalf("expected zero join submissions, got %d", f.gateway.JoinCalls())
	}
}

func TestJoinRoundInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	// entry fee 100 gwei + buffer 10 gwei, balance only 50 gwei
	f.gateway.SetBalance(f.addr, config.GweiToWei(50))

	_, err := f.exec.JoinRound(context.Background(), f.agent, 7)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if f.gateway.JoinCalls() != 0 {
		t.Fatalf("expected zero join submissions, got %d", f.gateway.JoinCalls())
	}
}

func TestJoinRoundSubmitsAndRecords(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))

	txHash, err := f.exec.JoinRound(context.Background(), f.agent, 7)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if txHash == "" {
		t.Fatal("expected tx hash")
	}
	if f.gateway.JoinCalls() != 1 {
		t.Fatalf("join calls = %d, want 1", f.gateway.JoinCalls())
	}

	w, err := f.db.GetWalletByID(context.Background(), f.agent.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Stats.GamesPlayed != 1 {
		t.Fatalf("GamesPlayed = %d, want 1", w.Stats.GamesPlayed)
	}
	// Balance must come from chain truth: 1000 - 100 entry fee.
	if w.Balances.Current.Cmp(config.GweiToWei(900)) != 0 {
		t.Fatalf("Current = %s, want %s", w.Balances.Current, config.GweiToWei(900))
	}

	history, err := f.db.ListHistory(context.Background(), f.agent.ID, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Type != store.HistoryBet || history[0].TxHash != txHash {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestJoinRoundCorruptKeyIsHardStop(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))
	f.agent.EncryptedKey = "aa:bb:cc"

	_, err := f.exec.JoinRound(context.Background(), f.agent, 7)
	if !errors.Is(err, keyvault.ErrCorruptKey) {
		t.Fatalf("expected ErrCorruptKey, got %v", err)
	}
	if f.gateway.JoinCalls() != 0 {
		t.Fatalf("expected zero join submissions, got %d", f.gateway.JoinCalls())
	}
}

func TestJoinRoundRespectsMaxBet(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))
	f.agent.Config.MaxBetPerRound = config.GweiToWei(50) // below the 100 gwei fee

	_, err := f.exec.JoinRound(context.Background(), f.agent, 7)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestWithdrawTransfersToOwner(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))
	if err := f.db.RecordDeposit(context.Background(), f.agent.ID, config.GweiToWei(1000), "", "seed"); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	amount := config.GweiToWei(400)
	txHash, err := f.exec.Withdraw(context.Background(), f.agent, amount)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	transfers := f.gateway.Transfers()
	if len(transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(transfers))
	}
	if transfers[0].To != common.HexToAddress(f.agent.OwnerAddress) {
		t.Fatalf("transfer went to %s, want owner", transfers[0].To.Hex())
	}
	if transfers[0].Amount.Cmp(amount) != 0 {
		t.Fatalf("transfer amount = %s, want %s", transfers[0].Amount, amount)
	}

	history, err := f.db.ListHistory(context.Background(), f.agent.ID, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	found := false
	for _, entry := range history {
		if entry.Type == store.HistoryWithdraw && entry.TxHash == txHash {
			found = true
		}
	}
	if !found {
		t.Fatalf("withdraw history entry missing: %+v", history)
	}
}

func TestWithdrawAlwaysRecordsHistoryAfterResync(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))

	// Withdraw most of the wallet. By the time the history row is
	// written the cached balance is already resynced below the withdrawn
	// amount; the row must still land.
	amount := config.GweiToWei(900)
	txHash, err := f.exec.Withdraw(context.Background(), f.agent, amount)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	w, err := f.db.GetWalletByID(context.Background(), f.agent.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Balances.Current.Cmp(config.GweiToWei(100)) != 0 {
		t.Fatalf("Current = %s, want %s", w.Balances.Current, config.GweiToWei(100))
	}

	history, err := f.db.ListHistory(context.Background(), f.agent.ID, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Type != store.HistoryWithdraw || history[0].TxHash != txHash {
		t.Fatalf("withdraw history entry missing or wrong: %+v", history)
	}
	if history[0].Amount.Cmp(amount) != 0 {
		t.Fatalf("history amount = %s, want %s", history[0].Amount, amount)
	}
}

func TestWithdrawChainFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.gateway.SetBalance(f.addr, config.GweiToWei(1000))
	f.gateway.SendErr = errors.New("rpc_down")

	_, err := f.exec.Withdraw(context.Background(), f.agent, config.GweiToWei(100))
	if err == nil {
		t.Fatal("expected error")
	}
	history, _ := f.db.ListHistory(context.Background(), f.agent.ID, 10, 0)
	if len(history) != 0 {
		t.Fatalf("no history expected on failed send, got %+v", history)
	}
}

func TestDisabledExecutor(t *testing.T) {
	vault, err := keyvault.NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	exec := New(nil, vault, testutil.NewFakeStore(), testChainConfig())
	if exec.Enabled() {
		t.Fatal("executor with nil gateway must be disabled")
	}
	_, err = exec.JoinRound(context.Background(), &store.AgentWallet{}, 1)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
