package store

import (
	"math/big"
	"time"
)

// History entry types. Every value-moving mutation appends one row.
const (
	HistoryDeposit  = "deposit"
	HistoryWithdraw = "withdraw"
	HistoryBet      = "bet"
	HistoryWin      = "win"
)

type AgentWallet struct {
	ID           string
	OwnerAddress string
	AgentAddress string
	EncryptedKey string
	IsEnabled    bool
	Config       AgentConfig
	Balances     AgentBalances
	Stats        AgentStats
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AgentConfig struct {
	DisplayName     string
	Persona         string
	CustomPersona   string
	PlayStyle       string
	AutoChatEnabled bool
	MaxBetPerRound  *big.Int
}

// AgentBalances are wei amounts. Current is resynced from on-chain truth
// after every confirmed transaction.
type AgentBalances struct {
	Deposited     *big.Int
	Current       *big.Int
	TotalWinnings *big.Int
	TotalLosses   *big.Int
}

type AgentStats struct {
	GamesPlayed  int
	GamesWon     int
	LastPlayedAt *time.Time
}

type HistoryEntry struct {
	ID          string
	AgentID     string
	Type        string
	Amount      *big.Int
	TxHash      string
	Description string
	CreatedAt   time.Time
}

// ConfigPatch is a merge-patch over AgentConfig: nil fields keep their
// prior values.
type ConfigPatch struct {
	DisplayName     *string
	Persona         *string
	CustomPersona   *string
	PlayStyle       *string
	AutoChatEnabled *bool
	MaxBetPerRound  *big.Int
}
