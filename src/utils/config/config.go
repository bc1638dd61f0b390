package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "MARKET_"

// Config stores global configuration
type Config struct {
	// Deployment environment, "development" enables stack traces in API errors
	Environment string

	// Logging level
	LogLevel string

	// Maximum time the application will be closing before stop is forced.
	StopTimeout time.Duration

	API        API
	Auth       Auth
	Database   Database
	Redis      Redis
	Chain      Chain
	Fees       Fees
	Smtp       Smtp
	Websocket  Websocket
	Upload     Upload
	Pinata     Pinata
	Chat       Chat
	Scheduler  Scheduler
	Reconciler Reconciler
	Outbox     Outbox
	Profiler   Profiler
}

func (self *Config) IsDevelopment() bool {
	return strings.EqualFold(self.Environment, "development")
}

// Environment variable names used by deployments that predate the MARKET_ prefix.
// Prefixed names take precedence.
var legacyEnv = map[string]string{
	"Environment":                       "NODE_ENV",
	"API.Port":                          "PORT",
	"API.Prefix":                        "API_PREFIX",
	"Auth.JwtSecret":                    "JWT_SECRET",
	"Database.Url":                      "DATABASE_URL",
	"Redis.Url":                         "REDIS_URL",
	"Smtp.Host":                         "SMTP_HOST",
	"Smtp.Port":                         "SMTP_PORT",
	"Smtp.User":                         "SMTP_USER",
	"Smtp.Password":                     "SMTP_PASSWORD",
	"Smtp.From":                         "SMTP_FROM",
	"Chain.RpcUrl":                      "BSC_TESTNET_RPC_URL",
	"Chain.ChainId":                     "CHAIN_ID",
	"Chain.FactoryAddress":              "FACTORY_ADDRESS",
	"Chain.EscrowImplementationAddress": "ESCROW_IMPLEMENTATION_ADDRESS",
	"Chain.RewardDistributorAddress":    "REWARD_DISTRIBUTOR_ADDRESS",
	"Chain.TokenAddress":                "GRMPS_TOKEN_ADDRESS",
	"Chain.SignerPrivateKey":            "SIGNER_PRIVATE_KEY",
	"Fees.PlatformFeeBps":               "PLATFORM_FEE_BPS",
	"Fees.RewardRateBps":                "REWARD_RATE_BPS",
	"Pinata.Jwt":                        "PINATA_JWT",
	"Pinata.Gateway":                    "PINATA_GATEWAY",
	"Upload.MaxFileSize":                "MAX_FILE_SIZE",
}

func setDefaults() {
	viper.SetDefault("Environment", "production")
	viper.SetDefault("LogLevel", "DEBUG")
	viper.SetDefault("StopTimeout", "30s")

	setAPIDefaults()
	setAuthDefaults()
	setDatabaseDefaults()
	setRedisDefaults()
	setChainDefaults()
	setFeesDefaults()
	setSmtpDefaults()
	setWebsocketDefaults()
	setUploadDefaults()
	setPinataDefaults()
	setChatDefaults()
	setSchedulerDefaults()
	setReconcilerDefaults()
	setOutboxDefaults()
	setProfilerDefaults()
}

func Default() (config *Config) {
	config, _ = Load("")
	return
}

// Visits every field and registers upper snake case ENV name for it
func BindEnv(path []string, val reflect.Value) {
	if val.Kind() != reflect.Struct {
		key := strings.Join(path, ".")
		envs := []string{ENV_PREFIX + strcase.ToScreamingSnake(strings.Join(path, "_"))}
		if legacy, ok := legacyEnv[key]; ok {
			envs = append(envs, legacy)
		}

		err := viper.BindEnv(append([]string{key}, envs...)...)
		if err != nil {
			panic(err)
		}
		return
	}

	// Iterates over struct fields
	for i := 0; i < val.NumField(); i++ {
		newPath := make([]string, len(path))
		copy(newPath, path)
		newPath = append(newPath, val.Type().Field(i).Name)
		BindEnv(newPath, val.Field(i))
	}
}

func defaultDecoderConfig(output interface{}) *mapstructure.DecoderConfig {
	c := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	return c
}

// Load configuration from file and env
func Load(filename string) (config *Config, err error) {
	viper.Reset()
	viper.SetConfigType("json")

	setDefaults()

	BindEnv([]string{}, reflect.ValueOf(Config{}))

	// Empty filename means we use default values
	if filename != "" {
		var content []byte
		/* #nosec */
		content, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		err = viper.ReadConfig(bytes.NewBuffer(content))
		if err != nil {
			return nil, err
		}
	}

	config = new(Config)
	decoder, err := mapstructure.NewDecoder(defaultDecoderConfig(config))
	if err != nil {
		return nil, err
	}

	err = decoder.Decode(viper.AllSettings())
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return
}

func (self *Config) validate() error {
	switch self.Chat.ReadReceiptPolicy {
	case ReadReceiptPolicyLenient, ReadReceiptPolicyStrict:
	default:
		return fmt.Errorf("unknown read receipt policy: %q", self.Chat.ReadReceiptPolicy)
	}

	if self.Upload.MaxImageSize > self.Upload.MaxFileSize {
		self.Upload.MaxImageSize = self.Upload.MaxFileSize
	}
	return nil
}
