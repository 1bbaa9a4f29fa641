package config

import (
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/params"
)

// ChainConfig describes the lottery contract binding. RPCURL and
// LotteryContract may be empty: the server then runs chat-only and the
// transaction path stays disabled.
type ChainConfig struct {
	RPCURL          string `env:"CHAIN_RPC_URL"`
	LotteryContract string `env:"LOTTERY_CONTRACT"`
	ChainID         int64  `env:"CHAIN_ID" envDefault:"97"`

	EntryFeeGwei     int64 `env:"ENTRY_FEE_GWEI" envDefault:"10000000"`
	GasBufferGwei    int64 `env:"GAS_BUFFER_GWEI" envDefault:"2000000"`
	MinOperatingGwei int64 `env:"MIN_OPERATING_GWEI" envDefault:"10000000"`

	CallTimeout    time.Duration `env:"CHAIN_CALL_TIMEOUT" envDefault:"10s"`
	ConfirmTimeout time.Duration `env:"CHAIN_CONFIRM_TIMEOUT" envDefault:"90s"`
}

func LoadChain() (ChainConfig, error) {
	var cfg ChainConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c ChainConfig) Configured() bool {
	return c.RPCURL != "" && c.LotteryContract != ""
}

func (c ChainConfig) EntryFeeWei() *big.Int {
	return GweiToWei(c.EntryFeeGwei)
}

func (c ChainConfig) GasBufferWei() *big.Int {
	return GweiToWei(c.GasBufferGwei)
}

func (c ChainConfig) MinOperatingWei() *big.Int {
	return GweiToWei(c.MinOperatingGwei)
}

func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}
