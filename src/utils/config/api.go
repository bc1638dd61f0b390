package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type API struct {
	// Interface the REST API binds to
	Host string

	// Port of the REST API
	Port uint16

	// Prefix of all versioned routes
	Prefix string

	// Base URL used to build absolute links, e.g. to uploaded files
	PublicUrl string

	// Frontend URL used in notification action links and emails
	FrontendUrl string

	// Requests taking longer are cancelled
	RequestTimeout time.Duration

	// Allowed CORS origins, empty allows any
	CorsOrigins []string
}

func (self API) ListenAddress() string {
	return fmt.Sprintf("%s:%d", self.Host, self.Port)
}

func setAPIDefaults() {
	viper.SetDefault("API.Host", "0.0.0.0")
	viper.SetDefault("API.Port", "5000")
	viper.SetDefault("API.Prefix", "/api/v1")
	viper.SetDefault("API.PublicUrl", "http://localhost:5000")
	viper.SetDefault("API.FrontendUrl", "http://localhost:3000")
	viper.SetDefault("API.RequestTimeout", "30s")
	viper.SetDefault("API.CorsOrigins", []string{})
}
