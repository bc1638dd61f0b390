package config

import (
	"time"

	"github.com/spf13/viper"
)

type Chain struct {
	// Contract endpoints are disabled when false
	Enabled bool

	// JSON-RPC endpoint of the EVM node
	RpcUrl string

	// EIP-155 chain id, 97 is BSC testnet
	ChainId int64

	// Hex encoded key of the platform signer
	SignerPrivateKey string

	FactoryAddress              string
	EscrowImplementationAddress string
	RewardDistributorAddress    string
	TokenAddress                string

	// Timeout of a single read call
	CallTimeout time.Duration

	// Maximum time spent waiting for a transaction to be mined
	TxWaitTimeout time.Duration

	// Percent added on top of the estimated gas limit
	GasLimitMarginPercent uint64

	// Consecutive RPC failures that open the circuit breaker
	BreakerMaxFailures uint32

	// Time the breaker stays open before probing again
	BreakerOpenTimeout time.Duration
}

func setChainDefaults() {
	viper.SetDefault("Chain.Enabled", "false")
	viper.SetDefault("Chain.RpcUrl", "https://data-seed-prebsc-1-s1.bnbchain.org:8545")
	viper.SetDefault("Chain.ChainId", "97")
	viper.SetDefault("Chain.SignerPrivateKey", "")
	viper.SetDefault("Chain.FactoryAddress", "")
	viper.SetDefault("Chain.EscrowImplementationAddress", "")
	viper.SetDefault("Chain.RewardDistributorAddress", "")
	viper.SetDefault("Chain.TokenAddress", "")
	viper.SetDefault("Chain.CallTimeout", "15s")
	viper.SetDefault("Chain.TxWaitTimeout", "2m")
	viper.SetDefault("Chain.GasLimitMarginPercent", "20")
	viper.SetDefault("Chain.BreakerMaxFailures", "5")
	viper.SetDefault("Chain.BreakerOpenTimeout", "30s")
}
