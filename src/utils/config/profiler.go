package config

import (
	"github.com/spf13/viper"
)

type Profiler struct {
	// Are profiling endpoints registered
	Enabled bool

	// Address of the profiling server
	ListenAddress string

	//BlockProfileRate
	BlockProfileRate int
}

func setProfilerDefaults() {
	viper.SetDefault("Profiler.Enabled", "false")
	viper.SetDefault("Profiler.ListenAddress", "127.0.0.1:6060")
	viper.SetDefault("Profiler.BlockProfileRate", "50")
}
