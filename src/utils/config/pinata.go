package config

import (
	"time"

	"github.com/spf13/viper"
)

type Pinata struct {
	// Empty token disables IPFS pinning
	Jwt string

	// Gateway used to build public links to pinned content
	Gateway string

	// Pinning API
	ApiUrl string

	Timeout time.Duration
}

func setPinataDefaults() {
	viper.SetDefault("Pinata.Jwt", "")
	viper.SetDefault("Pinata.Gateway", "https://gateway.pinata.cloud")
	viper.SetDefault("Pinata.ApiUrl", "https://api.pinata.cloud")
	viper.SetDefault("Pinata.Timeout", "60s")
}
