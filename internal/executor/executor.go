package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"lucky-agents/internal/chain"
	"lucky-agents/internal/config"
	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/registry"
	"lucky-agents/internal/store"
)

var (
	// ErrDisabled means the chain binding was never configured; only
	// explicit caller paths see this, autonomous joins are skipped
	// upstream.
	ErrDisabled = errors.New("executor_disabled")
	// ErrInsufficientFunds is soft for autonomous joins and surfaced for
	// direct withdraw calls.
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrAlreadyJoined     = errors.New("already_joined")
)

// Executor issues per-agent chain transactions. The signing key is
// decrypted transiently per operation and discarded immediately after.
type Executor struct {
	gateway        chain.Gateway
	vault          *keyvault.Vault
	db             registry.Datastore
	entryFee       *big.Int
	gasBuffer      *big.Int
	confirmTimeout time.Duration
}

func New(gateway chain.Gateway, vault *keyvault.Vault, db registry.Datastore, cfg config.ChainConfig) *Executor {
	return &Executor{
		gateway:        gateway,
		vault:          vault,
		db:             db,
		entryFee:       cfg.EntryFeeWei(),
		gasBuffer:      cfg.GasBufferWei(),
		confirmTimeout: cfg.ConfirmTimeout,
	}
}

// Enabled reports whether the transaction path is usable. Chat-only
// deployments run with a nil gateway.
func (e *Executor) Enabled() bool {
	return e.gateway != nil
}

func (e *Executor) EntryFee() *big.Int {
	return new(big.Int).Set(e.entryFee)
}

func (e *Executor) RoundInfo(ctx context.Context) (chain.RoundInfo, error) {
	if !e.Enabled() {
		return chain.RoundInfo{}, ErrDisabled
	}
	return e.gateway.CurrentRoundInfo(ctx)
}

// JoinRound submits one lottery entry for the agent, in strict order:
// idempotency predicate, funds check, transient signing, confirmation,
// on-chain balance resync, history append. Failures return soft errors;
// the next scheduled cycle retries naturally.
func (e *Executor) JoinRound(ctx context.Context, agent *store.AgentWallet, round uint64) (string, error) {
	if !e.Enabled() {
		return "", ErrDisabled
	}
	addr := common.HexToAddress(agent.AgentAddress)

	joined, err := e.gateway.HasJoined(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("hasJoined: %w", err)
	}
	if joined {
		// The chain enforces at-most-once; we only avoid a wasted
		// submission.
		return "", ErrAlreadyJoined
	}

	fee := e.entryFee
	if agent.Config.MaxBetPerRound != nil && agent.Config.MaxBetPerRound.Sign() > 0 && agent.Config.MaxBetPerRound.Cmp(fee) < 0 {
		return "", fmt.Errorf("%w: max bet below entry fee", ErrInsufficientFunds)
	}
	required := new(big.Int).Add(fee, e.gasBuffer)
	balance, err := e.gateway.BalanceAt(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("balance check: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return "", ErrInsufficientFunds
	}

	key, err := e.signingKey(agent.EncryptedKey)
	if err != nil {
		return "", err
	}
	txHash, err := e.gateway.JoinRound(ctx, key, fee)
	key = nil
	if err != nil {
		return "", fmt.Errorf("submit join: %w", err)
	}

	if err := e.awaitAndResync(ctx, agent, addr, txHash); err != nil {
		return txHash, err
	}
	description := fmt.Sprintf("joined round %d", round)
	if err := e.db.RecordGameResult(ctx, agent.ID, false, fee, txHash, description); err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("record join history failed")
	}
	return txHash, nil
}

// Withdraw transfers funds from the agent wallet back to its owner. The
// registry's disable-before-withdraw gate runs before this is called.
func (e *Executor) Withdraw(ctx context.Context, agent *store.AgentWallet, amount *big.Int) (string, error) {
	to := common.HexToAddress(agent.OwnerAddress)
	txHash, err := e.transfer(ctx, agent, to, amount)
	if err != nil {
		return "", err
	}
	if err := e.db.RecordWithdrawal(ctx, agent.ID, amount, txHash, "withdraw to owner"); err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("record withdraw history failed")
	}
	return txHash, nil
}

// Transfer sends value from the agent wallet to an arbitrary address and
// records it as an outgoing entry.
func (e *Executor) Transfer(ctx context.Context, agent *store.AgentWallet, to common.Address, amount *big.Int) (string, error) {
	txHash, err := e.transfer(ctx, agent, to, amount)
	if err != nil {
		return "", err
	}
	description := fmt.Sprintf("transfer to %s", to.Hex())
	if err := e.db.RecordWithdrawal(ctx, agent.ID, amount, txHash, description); err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("record transfer history failed")
	}
	return txHash, nil
}

func (e *Executor) transfer(ctx context.Context, agent *store.AgentWallet, to common.Address, amount *big.Int) (string, error) {
	if !e.Enabled() {
		return "", ErrDisabled
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", errors.New("transfer amount must be positive")
	}
	addr := common.HexToAddress(agent.AgentAddress)

	required := new(big.Int).Add(amount, e.gasBuffer)
	balance, err := e.gateway.BalanceAt(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("balance check: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return "", ErrInsufficientFunds
	}

	key, err := e.signingKey(agent.EncryptedKey)
	if err != nil {
		return "", err
	}
	txHash, err := e.gateway.SendValue(ctx, key, to, amount)
	key = nil
	if err != nil {
		return "", fmt.Errorf("submit transfer: %w", err)
	}
	if err := e.awaitAndResync(ctx, agent, addr, txHash); err != nil {
		return txHash, err
	}
	return txHash, nil
}

func (e *Executor) awaitAndResync(ctx context.Context, agent *store.AgentWallet, addr common.Address, txHash string) error {
	confirmCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()
	if err := e.gateway.WaitMined(confirmCtx, txHash); err != nil {
		return fmt.Errorf("confirm %s: %w", txHash, err)
	}

	// Balance is always re-read from chain truth, never derived locally.
	balance, err := e.gateway.BalanceAt(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("post-tx balance resync failed")
		return nil
	}
	if err := e.db.SyncBalance(ctx, agent.ID, balance); err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("store balance sync failed")
	}
	return nil
}

func (e *Executor) signingKey(encrypted string) (*ecdsa.PrivateKey, error) {
	plain, err := e.vault.Decrypt(encrypted)
	if err != nil {
		// Corrupt key blobs are a hard stop for this agent's action.
		return nil, err
	}
	key, err := crypto.HexToECDSA(string(plain))
	for i := range plain {
		plain[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode private key", keyvault.ErrCorruptKey)
	}
	return key, nil
}
