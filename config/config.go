package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	AuthToken     string
	BaseURL       string
	WSURL         string
	PayoutAddress string
	LogLevel      string

	QuoteDebounce          time.Duration
	HistoryRefreshInterval time.Duration
	RequestsPerMinute      int

	Storage     StorageConfig
	AutoDeposit AutoDepositConfig
	AutoConfirm bool
}

// StorageConfig selects where previously seen charge codes are kept
type StorageConfig struct {
	Backend string // "json" or "bolt"
	Path    string
}

// AutoDepositConfig controls paying a charge's deposit address from a local wallet
type AutoDepositConfig struct {
	Enabled bool
	EVM     EVMNetwork
}

// EVMNetwork configures the EVM wallet used for ethereum, dai and usdc deposits
type EVMNetwork struct {
	RPCUrl     string
	PrivateKey string
	ChainID    int64
	GasLimit   *uint64
	GasPrice   *int64
	// Tokens maps a coin identifier (dai, usdc) to its ERC20 contract
	Tokens map[string]EVMToken
}

// EVMToken describes an ERC20 contract accepted as deposit
type EVMToken struct {
	Contract string
	Decimals int32
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".coin-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("base_url", "https://api.lbry.com")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("quote_debounce", "400ms")
	viper.SetDefault("history_refresh_interval", "60s")
	viper.SetDefault("requests_per_minute", 200)
	viper.SetDefault("storage.backend", "json")
	viper.SetDefault("auto_deposit.evm.chain_id", 1)
	viper.SetDefault("auto_deposit.evm.tokens", map[string]interface{}{
		"usdc": map[string]interface{}{"contract": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "decimals": 6},
		"dai":  map[string]interface{}{"contract": "0x6B175474E89094C44Da98b954EedeAC495271d0F", "decimals": 18},
	})

	// Read from environment variables
	viper.SetEnvPrefix("COIN_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		AuthToken:              viper.GetString("auth_token"),
		BaseURL:                viper.GetString("base_url"),
		WSURL:                  viper.GetString("ws_url"),
		PayoutAddress:          viper.GetString("payout_address"),
		LogLevel:               viper.GetString("log_level"),
		QuoteDebounce:          viper.GetDuration("quote_debounce"),
		HistoryRefreshInterval: viper.GetDuration("history_refresh_interval"),
		RequestsPerMinute:      viper.GetInt("requests_per_minute"),
		Storage: StorageConfig{
			Backend: viper.GetString("storage.backend"),
			Path:    viper.GetString("storage.path"),
		},
		AutoDeposit: AutoDepositConfig{
			Enabled: viper.GetBool("auto_deposit.enabled"),
			EVM: EVMNetwork{
				RPCUrl:     viper.GetString("auto_deposit.evm.rpc_url"),
				PrivateKey: viper.GetString("auto_deposit.evm.private_key"),
				ChainID:    viper.GetInt64("auto_deposit.evm.chain_id"),
				Tokens:     map[string]EVMToken{},
			},
		},
		AutoConfirm: viper.GetBool("auto_deposit.auto_confirm"),
	}

	if viper.IsSet("auto_deposit.evm.gas_limit") {
		gasLimit := viper.GetUint64("auto_deposit.evm.gas_limit")
		cfg.AutoDeposit.EVM.GasLimit = &gasLimit
	}
	if viper.IsSet("auto_deposit.evm.gas_price") {
		gasPrice := viper.GetInt64("auto_deposit.evm.gas_price")
		cfg.AutoDeposit.EVM.GasPrice = &gasPrice
	}
	if err := viper.UnmarshalKey("auto_deposit.evm.tokens", &cfg.AutoDeposit.EVM.Tokens); err != nil {
		return nil, fmt.Errorf("invalid auto_deposit.evm.tokens: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the required settings are present and sane
func (c *Config) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("auth token not found. Please set COIN_SWAP_AUTH_TOKEN environment variable or create a .coin-swap.yaml config file")
	}
	if c.Storage.Backend != "json" && c.Storage.Backend != "bolt" {
		return fmt.Errorf("storage.backend must be 'json' or 'bolt', got '%s'", c.Storage.Backend)
	}
	if c.QuoteDebounce <= 0 {
		return fmt.Errorf("quote_debounce must be positive")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	return nil
}
