package config

import (
	"time"

	"github.com/spf13/viper"
)

type Reconciler struct {
	// Run the escrow reconciler in this process, requires Chain
	Enabled bool

	// Time between passes
	Interval time.Duration

	// Escrows checked in one query
	BatchSize int

	// Pending transactions younger than this are left to the request that sent them
	PendingTxMinAge time.Duration
}

func setReconcilerDefaults() {
	viper.SetDefault("Reconciler.Enabled", "true")
	viper.SetDefault("Reconciler.Interval", "5m")
	viper.SetDefault("Reconciler.BatchSize", "100")
	viper.SetDefault("Reconciler.PendingTxMinAge", "3m")
}
