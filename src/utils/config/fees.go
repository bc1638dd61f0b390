package config

import (
	"github.com/spf13/viper"
)

// Initial values of the system settings row
type Fees struct {
	// Platform fee taken from every escrow, in basis points
	PlatformFeeBps uint16

	// Reward paid in GRMPS per released escrow, in basis points
	RewardRateBps uint16
}

func setFeesDefaults() {
	viper.SetDefault("Fees.PlatformFeeBps", "250")
	viper.SetDefault("Fees.RewardRateBps", "100")
}
