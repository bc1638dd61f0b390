package config

import (
	"time"

	"github.com/spf13/viper"
)

type Database struct {
	// Full connection string, takes precedence over the discrete fields
	Url string

	Port        uint16
	Host        string
	User        string
	Password    string
	Name        string
	SslMode     string
	PingTimeout time.Duration

	// TLS, PEM encoded
	ClientKey  string
	ClientCert string
	CaCert     string

	// Connection pool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	// Apply migrations when a connection is opened
	MigrateOnStart bool

	// Credentials used only for migrations, empty falls back to User/Password
	MigrationUser     string
	MigrationPassword string
}

func setDatabaseDefaults() {
	viper.SetDefault("Database.Url", "")
	viper.SetDefault("Database.Port", "5432")
	viper.SetDefault("Database.Host", "127.0.0.1")
	viper.SetDefault("Database.User", "postgres")
	viper.SetDefault("Database.Password", "postgres")
	viper.SetDefault("Database.Name", "market")
	viper.SetDefault("Database.SslMode", "disable")
	viper.SetDefault("Database.PingTimeout", "15s")
	viper.SetDefault("Database.ClientKey", "")
	viper.SetDefault("Database.ClientCert", "")
	viper.SetDefault("Database.CaCert", "")
	viper.SetDefault("Database.MaxOpenConns", "25")
	viper.SetDefault("Database.MaxIdleConns", "5")
	viper.SetDefault("Database.ConnMaxIdleTime", "10m")
	viper.SetDefault("Database.ConnMaxLifetime", "1h")
	viper.SetDefault("Database.MigrateOnStart", "true")
	viper.SetDefault("Database.MigrationUser", "")
	viper.SetDefault("Database.MigrationPassword", "")
}
