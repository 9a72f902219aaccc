package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL string

	Pool            string
	PositionManager string
	Factory         string
	InitCodeHash    string
	PriceFeed       string
	RewardToken     string
	Registry        string

	OperatorKey string

	BaseToken      string
	BaseDecimals   uint8
	PairedDecimals uint8

	RewardRate   string
	FarmingStart int64
	FarmingEnd   int64

	TWAPWindow time.Duration
	Staleness  time.Duration

	RefreshInterval  time.Duration
	SnapshotInterval time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration

	PostgresDSN string
	JournalPath string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FARMD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("init-code-hash", "0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")
	v.SetDefault("base-decimals", 18)
	v.SetDefault("paired-decimals", 18)
	v.SetDefault("twap-window", 30*time.Minute)
	v.SetDefault("staleness", 15*time.Minute)
	v.SetDefault("refresh-interval", 15*time.Second)
	v.SetDefault("snapshot-interval", time.Minute)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("journal", "./data/events.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Pool:             v.GetString("pool"),
		PositionManager:  v.GetString("position-manager"),
		Factory:          v.GetString("factory"),
		InitCodeHash:     v.GetString("init-code-hash"),
		PriceFeed:        v.GetString("price-feed"),
		RewardToken:      v.GetString("reward-token"),
		Registry:         v.GetString("registry"),
		OperatorKey:      v.GetString("operator-key"),
		BaseToken:        v.GetString("base-token"),
		BaseDecimals:     uint8(v.GetUint("base-decimals")),
		PairedDecimals:   uint8(v.GetUint("paired-decimals")),
		RewardRate:       v.GetString("reward-rate"),
		FarmingStart:     v.GetInt64("farming-start"),
		FarmingEnd:       v.GetInt64("farming-end"),
		TWAPWindow:       v.GetDuration("twap-window"),
		Staleness:        v.GetDuration("staleness"),
		RefreshInterval:  v.GetDuration("refresh-interval"),
		SnapshotInterval: v.GetDuration("snapshot-interval"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		PostgresDSN:      v.GetString("pg-dsn"),
		JournalPath:      v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}
