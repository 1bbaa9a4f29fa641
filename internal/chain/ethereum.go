package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"lucky-agents/internal/config"
)

const lotteryABI = `[
	{"name":"joinRound","type":"function","stateMutability":"payable","inputs":[],"outputs":[]},
	{"name":"hasJoined","type":"function","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"currentRoundInfo","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"round","type":"uint256"},
		{"name":"startTime","type":"uint256"},
		{"name":"endTime","type":"uint256"},
		{"name":"potAmount","type":"uint256"},
		{"name":"participantCount","type":"uint256"},
		{"name":"isEnded","type":"bool"}
	]}
]`

const (
	joinGasLimit       = 200000
	transferGasLimit   = 21000
	receiptPollEvery   = 2 * time.Second
	defaultCallTimeout = 10 * time.Second
)

// Client binds the lottery contract over a single shared RPC connection.
// It is safe for concurrent independent calls. Every RPC round-trip is
// bounded by the configured call timeout so a stalled node cannot wedge
// a scheduler cycle.
type Client struct {
	eth         *ethclient.Client
	contract    common.Address
	chainID     *big.Int
	abi         abi.ABI
	callTimeout time.Duration
}

func NewClient(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	parsed, err := abi.JSON(strings.NewReader(lotteryABI))
	if err != nil {
		return nil, fmt.Errorf("parse lottery abi: %w", err)
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Client{
		eth:         eth,
		contract:    common.HexToAddress(cfg.LotteryContract),
		chainID:     big.NewInt(cfg.ChainID),
		abi:         parsed,
		callTimeout: callTimeout,
	}, nil
}

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) JoinRound(ctx context.Context, key *ecdsa.PrivateKey, value *big.Int) (string, error) {
	data, err := c.abi.Pack("joinRound")
	if err != nil {
		return "", fmt.Errorf("pack joinRound: %w", err)
	}
	return c.sendTx(ctx, key, c.contract, value, joinGasLimit, data)
}

func (c *Client) HasJoined(ctx context.Context, addr common.Address) (bool, error) {
	data, err := c.abi.Pack("hasJoined", addr)
	if err != nil {
		return false, fmt.Errorf("pack hasJoined: %w", err)
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	raw, err := c.eth.CallContract(callCtx, gethcore.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call hasJoined: %w", err)
	}
	out, err := c.abi.Unpack("hasJoined", raw)
	if err != nil || len(out) != 1 {
		return false, fmt.Errorf("unpack hasJoined: %w", err)
	}
	joined, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasJoined output %T", out[0])
	}
	return joined, nil
}

func (c *Client) CurrentRoundInfo(ctx context.Context) (RoundInfo, error) {
	data, err := c.abi.Pack("currentRoundInfo")
	if err != nil {
		return RoundInfo{}, fmt.Errorf("pack currentRoundInfo: %w", err)
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	raw, err := c.eth.CallContract(callCtx, gethcore.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return RoundInfo{}, fmt.Errorf("call currentRoundInfo: %w", err)
	}
	out, err := c.abi.Unpack("currentRoundInfo", raw)
	if err != nil || len(out) != 6 {
		return RoundInfo{}, fmt.Errorf("unpack currentRoundInfo: %w", err)
	}

	round, _ := out[0].(*big.Int)
	startTime, _ := out[1].(*big.Int)
	endTime, _ := out[2].(*big.Int)
	pot, _ := out[3].(*big.Int)
	participants, _ := out[4].(*big.Int)
	ended, _ := out[5].(bool)
	if round == nil || startTime == nil || endTime == nil || pot == nil || participants == nil {
		return RoundInfo{}, fmt.Errorf("malformed currentRoundInfo output")
	}

	return RoundInfo{
		Round:            round.Uint64(),
		StartTime:        time.Unix(startTime.Int64(), 0),
		EndTime:          time.Unix(endTime.Int64(), 0),
		PotWei:           pot,
		ParticipantCount: int(participants.Int64()),
		IsEnded:          ended,
	}, nil
}

func (c *Client) SendValue(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, amount *big.Int) (string, error) {
	return c.sendTx(ctx, key, to, amount, transferGasLimit, nil)
}

func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	balance, err := c.eth.BalanceAt(callCtx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("balance at %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// WaitMined polls for the receipt until the context expires. A mined
// receipt with a failed status maps to ErrTxReverted.
func (c *Client) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollEvery)
	defer ticker.Stop()
	for {
		receipt, err := c.receiptOnce(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return ErrTxReverted
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("await confirmation of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// receiptOnce bounds a single receipt poll so one stalled request never
// eats the whole confirmation window.
func (c *Client) receiptOnce(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.eth.TransactionReceipt(callCtx, hash)
}

func (c *Client) sendTx(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, gasLimit uint64, data []byte) (string, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.eth.PendingNonceAt(callCtx, from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(callCtx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}
	if err := c.eth.SendTransaction(callCtx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}
