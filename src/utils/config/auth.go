package config

import (
	"time"

	"github.com/spf13/viper"
)

type Auth struct {
	// HMAC secret used to sign and verify bearer tokens
	JwtSecret string

	// Issuer claim put into issued tokens
	Issuer string

	// Lifetime of issued tokens
	TokenTTL time.Duration

	// Lifetime of a wallet login nonce
	NonceTTL time.Duration
}

func setAuthDefaults() {
	viper.SetDefault("Auth.JwtSecret", "change-me")
	viper.SetDefault("Auth.Issuer", "market")
	viper.SetDefault("Auth.TokenTTL", "168h")
	viper.SetDefault("Auth.NonceTTL", "10m")
}
