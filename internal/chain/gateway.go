package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotConfigured means no RPC endpoint or contract address was
	// supplied. The transaction path stays disabled; chat behaviors are
	// unaffected.
	ErrNotConfigured = errors.New("chain_not_configured")
	ErrTxReverted    = errors.New("tx_reverted")
)

// RoundInfo mirrors the lottery contract's currentRoundInfo view.
type RoundInfo struct {
	Round            uint64
	StartTime        time.Time
	EndTime          time.Time
	PotWei           *big.Int
	ParticipantCount int
	IsEnded          bool
}

// TimeRemaining is the window left to join, zero once the round ended.
func (r RoundInfo) TimeRemaining(now time.Time) time.Duration {
	if r.IsEnded || now.After(r.EndTime) {
		return 0
	}
	return r.EndTime.Sub(now)
}

// Gateway is the on-chain surface the executor consumes. Signing keys are
// passed per call and never retained.
type Gateway interface {
	JoinRound(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int) (string, error)
	HasJoined(ctx context.Context, addr common.Address) (bool, error)
	CurrentRoundInfo(ctx context.Context) (RoundInfo, error)
	SendValue(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, amount *big.Int) (string, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	WaitMined(ctx context.Context, txHash string) error
}
