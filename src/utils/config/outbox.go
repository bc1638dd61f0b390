package config

import (
	"time"

	"github.com/spf13/viper"
)

type Outbox struct {
	// Run the outbox dispatcher in this process
	Enabled bool

	// How often due messages are polled
	PollInterval time.Duration

	// Messages claimed in one poll
	BatchSize int

	// Number of workers delivering messages
	NumWorkers int

	// Max number of messages waiting for a worker
	WorkerQueueSize int

	// Delivery attempts before a message is marked failed
	MaxAttempts int

	// Delay after the first failure, doubled on each next one
	RetryInitialInterval time.Duration

	// Upper bound of the delay between attempts
	RetryMaxInterval time.Duration

	// Messages stuck in processing longer than this are claimed again
	ProcessingTimeout time.Duration

	// Interval of saving delivery results
	StoreInterval time.Duration

	// Batch size of saving delivery results
	StoreBatchSize int
}

func setOutboxDefaults() {
	viper.SetDefault("Outbox.Enabled", "true")
	viper.SetDefault("Outbox.PollInterval", "2s")
	viper.SetDefault("Outbox.BatchSize", "50")
	viper.SetDefault("Outbox.NumWorkers", "5")
	viper.SetDefault("Outbox.WorkerQueueSize", "100")
	viper.SetDefault("Outbox.MaxAttempts", "8")
	viper.SetDefault("Outbox.RetryInitialInterval", "5s")
	viper.SetDefault("Outbox.RetryMaxInterval", "30m")
	viper.SetDefault("Outbox.ProcessingTimeout", "5m")
	viper.SetDefault("Outbox.StoreInterval", "1s")
	viper.SetDefault("Outbox.StoreBatchSize", "50")
}
