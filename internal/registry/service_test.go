package registry

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/store"
	"lucky-agents/internal/testutil"
)

const testOwner = "0x00000000000000000000000000000000DeaDBeef"

func newTestService(t *testing.T, minOperating int64) (*Service, *testutil.FakeStore) {
	t.Helper()
	vault, err := keyvault.NewWithKey([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	fs := testutil.NewFakeStore()
	return NewService(fs, vault, big.NewInt(minOperating)), fs
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc, fs := newTestService(t, 0)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, testOwner)
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, testOwner)
	if err != nil {
		t.Fatalf("getOrCreate again: %v", err)
	}
	if fs.WalletCount() != 1 {
		t.Fatalf("wallet count = %d, want 1", fs.WalletCount())
	}
	if first.AgentAddress != second.AgentAddress {
		t.Fatalf("agent address changed: %s != %s", first.AgentAddress, second.AgentAddress)
	}
	if first.IsEnabled {
		t.Fatal("fresh wallet must start disabled")
	}
	if !common.IsHexAddress(first.AgentAddress) {
		t.Fatalf("agent address %q is not a hex address", first.AgentAddress)
	}
	if first.EncryptedKey == "" || first.EncryptedKey == first.AgentAddress {
		t.Fatal("private key not stored encrypted")
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	svc, fs := newTestService(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GetOrCreate(ctx, testOwner)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if fs.WalletCount() != 1 {
		t.Fatalf("wallet count = %d, want 1", fs.WalletCount())
	}
}

func TestGetOrCreateRejectsBadOwner(t *testing.T) {
	svc, _ := newTestService(t, 0)
	if _, err := svc.GetOrCreate(context.Background(), "not-an-address"); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}

func TestEnableChecksOperatingMinimum(t *testing.T) {
	// minimum 0.01, balance 0.005: enable must fail.
	svc, _ := newTestService(t, 10_000_000) // gwei-scale numbers keep the test readable
	ctx := context.Background()

	w, err := svc.GetOrCreate(ctx, testOwner)
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if _, err := svc.RecordDeposit(ctx, testOwner, big.NewInt(5_000_000), "0xdep"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Enable(ctx, testOwner); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if _, err := svc.RecordDeposit(ctx, testOwner, big.NewInt(5_000_000), "0xdep2"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	enabled, err := svc.Enable(ctx, testOwner)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !enabled.IsEnabled {
		t.Fatal("wallet not enabled")
	}
	_ = w
}

func TestDisableAlwaysSucceeds(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, testOwner); err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if _, err := svc.Enable(ctx, testOwner); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := svc.Disable(ctx, testOwner); err != nil {
		t.Fatalf("disable: %v", err)
	}
	w, err := svc.Get(ctx, testOwner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.IsEnabled {
		t.Fatal("wallet still enabled")
	}
}

func TestWithdrawableWalletRequiresDisabled(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, testOwner); err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if _, err := svc.RecordDeposit(ctx, testOwner, big.NewInt(1000), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Enable(ctx, testOwner); err != nil {
		t.Fatalf("enable: %v", err)
	}

	// Enabled agent must not allow withdrawal regardless of balance.
	if _, _, err := svc.WithdrawableWallet(ctx, testOwner, nil); !errors.Is(err, ErrAgentEnabled) {
		t.Fatalf("expected ErrAgentEnabled, got %v", err)
	}

	if err := svc.Disable(ctx, testOwner); err != nil {
		t.Fatalf("disable: %v", err)
	}
	w, amount, err := svc.WithdrawableWallet(ctx, testOwner, nil)
	if err != nil {
		t.Fatalf("withdrawable: %v", err)
	}
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("amount = %s, want 1000 (withdraw all)", amount)
	}
	if w.OwnerAddress != common.HexToAddress(testOwner).Hex() {
		t.Fatalf("unexpected owner %s", w.OwnerAddress)
	}

	if _, _, err := svc.WithdrawableWallet(ctx, testOwner, big.NewInt(2000)); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected store.ErrInsufficientBalance, got %v", err)
	}
}

func TestUpdateConfigMergePatch(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, testOwner); err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	persona := "ho_bao"
	w, err := svc.UpdateConfig(ctx, testOwner, store.ConfigPatch{Persona: &persona})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if w.Config.Persona != "ho_bao" {
		t.Fatalf("persona = %q, want ho_bao", w.Config.Persona)
	}
	if w.Config.PlayStyle != DefaultPlayStyle {
		t.Fatalf("play style lost: %q", w.Config.PlayStyle)
	}
}
