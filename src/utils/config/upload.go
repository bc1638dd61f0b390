package config

import (
	"github.com/spf13/viper"
)

type Upload struct {
	// Root directory, files land in Dir/{category}
	Dir string

	// Maximum size of any uploaded file, in bytes
	MaxFileSize int64

	// Maximum size of an image, in bytes
	MaxImageSize int64
}

func setUploadDefaults() {
	viper.SetDefault("Upload.Dir", "uploads")
	viper.SetDefault("Upload.MaxFileSize", "104857600")
	viper.SetDefault("Upload.MaxImageSize", "5242880")
}
