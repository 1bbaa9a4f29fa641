package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/store"
)

// Datastore is the slice of the store the registry needs. *store.Store
// satisfies it; tests inject an in-memory fake.
type Datastore interface {
	InsertWallet(ctx context.Context, w *store.AgentWallet) error
	GetWalletByOwner(ctx context.Context, owner string) (*store.AgentWallet, error)
	GetWalletByID(ctx context.Context, id string) (*store.AgentWallet, error)
	ListEnabledWallets(ctx context.Context) ([]store.AgentWallet, error)
	ListChatWallets(ctx context.Context) ([]store.AgentWallet, error)
	ListWallets(ctx context.Context, limit, offset int) ([]store.AgentWallet, error)
	SetEnabled(ctx context.Context, owner string, enabled bool) error
	UpdateConfig(ctx context.Context, owner string, patch store.ConfigPatch) (*store.AgentWallet, error)
	RecordDeposit(ctx context.Context, agentID string, amount *big.Int, txHash, description string) error
	RecordGameResult(ctx context.Context, agentID string, won bool, amount *big.Int, txHash, description string) error
	RecordWithdrawal(ctx context.Context, agentID string, amount *big.Int, txHash, description string) error
	SyncBalance(ctx context.Context, agentID string, current *big.Int) error
	ListHistory(ctx context.Context, agentID string, limit, offset int) ([]store.HistoryEntry, error)
}

const (
	DefaultPersona   = "xiao_xing"
	DefaultPlayStyle = "steady"
)

// Service owns agent wallet records. One wallet per owner; the agent
// keypair is generated here and only ever stored encrypted.
type Service struct {
	db           Datastore
	vault        *keyvault.Vault
	minOperating *big.Int
}

func NewService(db Datastore, vault *keyvault.Vault, minOperating *big.Int) *Service {
	if minOperating == nil {
		minOperating = big.NewInt(0)
	}
	return &Service{db: db, vault: vault, minOperating: minOperating}
}

// GetOrCreate is idempotent per owner. Concurrent calls race to insert;
// the loser sees the unique violation and re-fetches the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, owner string) (*store.AgentWallet, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetWalletByOwner(ctx, owner)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	agentAddr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	encrypted, err := s.vault.Encrypt([]byte(hex.EncodeToString(crypto.FromECDSA(key))))
	if err != nil {
		return nil, err
	}

	w := &store.AgentWallet{
		ID:           store.NewID(),
		OwnerAddress: owner,
		AgentAddress: agentAddr,
		EncryptedKey: encrypted,
		IsEnabled:    false,
		Config: store.AgentConfig{
			Persona:         DefaultPersona,
			PlayStyle:       DefaultPlayStyle,
			AutoChatEnabled: true,
			MaxBetPerRound:  big.NewInt(0),
		},
	}
	if err := s.db.InsertWallet(ctx, w); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.db.GetWalletByOwner(ctx, owner)
		}
		return nil, err
	}
	log.Info().Str("owner", owner).Str("agent", agentAddr).Msg("agent wallet created")
	return w, nil
}

// Enable turns the agent on. The operating-minimum check happens once
// here, not continuously afterwards.
func (s *Service) Enable(ctx context.Context, owner string) (*store.AgentWallet, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	w, err := s.db.GetWalletByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if w.Balances.Current.Cmp(s.minOperating) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := s.db.SetEnabled(ctx, owner, true); err != nil {
		return nil, err
	}
	w.IsEnabled = true
	return w, nil
}

// Disable always succeeds for an existing agent.
func (s *Service) Disable(ctx context.Context, owner string) error {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return err
	}
	return s.db.SetEnabled(ctx, owner, false)
}

func (s *Service) Get(ctx context.Context, owner string) (*store.AgentWallet, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.db.GetWalletByOwner(ctx, owner)
}

func (s *Service) UpdateConfig(ctx context.Context, owner string, patch store.ConfigPatch) (*store.AgentWallet, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.db.UpdateConfig(ctx, owner, patch)
}

func (s *Service) RecordDeposit(ctx context.Context, owner string, amount *big.Int, txHash string) (*store.AgentWallet, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}
	w, err := s.db.GetWalletByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.db.RecordDeposit(ctx, w.ID, amount, txHash, "owner deposit"); err != nil {
		return nil, err
	}
	return s.db.GetWalletByID(ctx, w.ID)
}

// WithdrawableWallet validates the disable-before-withdraw rule and
// resolves the amount (nil means everything). The chain transfer itself
// belongs to the executor; this is the bookkeeping gate.
func (s *Service) WithdrawableWallet(ctx context.Context, owner string, amount *big.Int) (*store.AgentWallet, *big.Int, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, nil, err
	}
	w, err := s.db.GetWalletByOwner(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if w.IsEnabled {
		return nil, nil, ErrAgentEnabled
	}
	if amount == nil {
		amount = new(big.Int).Set(w.Balances.Current)
	}
	if amount.Sign() <= 0 {
		return nil, nil, ErrNothingToWithdraw
	}
	if amount.Cmp(w.Balances.Current) > 0 {
		return nil, nil, store.ErrInsufficientBalance
	}
	return w, amount, nil
}

func (s *Service) EnabledAgents(ctx context.Context) ([]store.AgentWallet, error) {
	return s.db.ListEnabledWallets(ctx)
}

func (s *Service) ChatAgents(ctx context.Context) ([]store.AgentWallet, error) {
	return s.db.ListChatWallets(ctx)
}

// AllAgents pages through every wallet regardless of enabled state. Admin
// surface only.
func (s *Service) AllAgents(ctx context.Context, limit, offset int) ([]store.AgentWallet, error) {
	return s.db.ListWallets(ctx, limit, offset)
}

func (s *Service) History(ctx context.Context, owner string, limit, offset int) ([]store.HistoryEntry, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	w, err := s.db.GetWalletByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.db.ListHistory(ctx, w.ID, limit, offset)
}

func normalizeOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if !common.IsHexAddress(owner) {
		return "", ErrInvalidOwner
	}
	return common.HexToAddress(owner).Hex(), nil
}
