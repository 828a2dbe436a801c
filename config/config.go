package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	IntentBaseURL string
	IntentToken   string
	ListenAddr    string
	RedisAddr     string
	StatusFeedURL string
	PositionsURL  string
	PrivateKey    string
	RPCURLs       map[uint64]string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".vaultroute")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("intent_base_url", "https://api.1inch.dev/fusion-plus")
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("redis_addr", "localhost:6379")

	// Read from environment variables
	viper.SetEnvPrefix("VAULTROUTE")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	rpcURLs, err := parseRPCURLs(viper.GetStringMapString("rpc_urls"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		IntentBaseURL: viper.GetString("intent_base_url"),
		IntentToken:   viper.GetString("intent_token"),
		ListenAddr:    viper.GetString("listen_addr"),
		RedisAddr:     viper.GetString("redis_addr"),
		StatusFeedURL: viper.GetString("status_feed_url"),
		PositionsURL:  viper.GetString("positions_url"),
		PrivateKey:    viper.GetString("private_key"),
		RPCURLs:       rpcURLs,
	}

	// Validate API token
	if cfg.IntentToken == "" {
		return nil, fmt.Errorf("API token not found. Please set VAULTROUTE_INTENT_TOKEN environment variable or create a .vaultroute.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

func parseRPCURLs(raw map[string]string) (map[uint64]string, error) {
	urls := make(map[uint64]string, len(raw))
	for chain, url := range raw {
		id, err := strconv.ParseUint(chain, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in rpc_urls", chain)
		}
		urls[id] = url
	}
	return urls, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
