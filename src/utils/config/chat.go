package config

import (
	"github.com/spf13/viper"
)

const (
	// Any receipt that isn't read yet may become read
	ReadReceiptPolicyLenient = "lenient"

	// Only delivered receipts may become read
	ReadReceiptPolicyStrict = "strict"
)

type Chat struct {
	ReadReceiptPolicy string

	// Maximum number of messages returned in one page
	MaxPageSize int
}

func setChatDefaults() {
	viper.SetDefault("Chat.ReadReceiptPolicy", ReadReceiptPolicyLenient)
	viper.SetDefault("Chat.MaxPageSize", "100")
}

func (self Chat) IsLenient() bool {
	return self.ReadReceiptPolicy == ReadReceiptPolicyLenient
}
