package config

import (
	"time"

	"github.com/spf13/viper"
)

type Smtp struct {
	// Empty host disables emails
	Host     string
	Port     uint16
	User     string
	Password string

	// Sender address and name
	From     string
	FromName string

	// Recipient of contact form messages
	AdminAddress string

	// Skip TLS verification of the SMTP server
	SkipVerify bool

	// Maximum emails sent per second
	MaxPerSecond int

	// Time limit for sending one email
	Timeout time.Duration
}

func setSmtpDefaults() {
	viper.SetDefault("Smtp.Host", "")
	viper.SetDefault("Smtp.Port", "587")
	viper.SetDefault("Smtp.User", "")
	viper.SetDefault("Smtp.Password", "")
	viper.SetDefault("Smtp.From", "noreply@localhost")
	viper.SetDefault("Smtp.FromName", "Marketplace")
	viper.SetDefault("Smtp.AdminAddress", "admin@localhost")
	viper.SetDefault("Smtp.SkipVerify", "false")
	viper.SetDefault("Smtp.MaxPerSecond", "5")
	viper.SetDefault("Smtp.Timeout", "30s")
}
