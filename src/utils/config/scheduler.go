package config

import (
	"time"

	"github.com/spf13/viper"
)

type Scheduler struct {
	// Run the job expiry scheduler in this process
	Enabled bool

	// Cron expression of the expiry scan
	ExpirySchedule string

	// Jobs with a deadline closer than this get notified
	ExpiryWindow time.Duration

	// Take a redis lock before each pass, requires Redis
	LockEnabled bool

	// Lifetime of the lock
	LockTTL time.Duration
}

func setSchedulerDefaults() {
	viper.SetDefault("Scheduler.Enabled", "true")
	viper.SetDefault("Scheduler.ExpirySchedule", "@every 1h")
	viper.SetDefault("Scheduler.ExpiryWindow", "24h")
	viper.SetDefault("Scheduler.LockEnabled", "false")
	viper.SetDefault("Scheduler.LockTTL", "10m")
}
