// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

type Config struct {
	License          string        `mapstructure:"license"`
	PrivateKey       string        `mapstructure:"private_key"`
	RPCURL           string        `mapstructure:"rpc_url"`
	WebSocketURL     string        `mapstructure:"websocket_url"`
	PumpFunProgramID string        `mapstructure:"pumpfun_program_id"`
	QuoteURL         string        `mapstructure:"quote_url"`
	PriceURL         string        `mapstructure:"price_url"`
	FeeAccount       string        `mapstructure:"fee_account"`
	BuyAmountSOL     float64       `mapstructure:"buy_amount_sol"`
	SlippageBps      uint64        `mapstructure:"slippage_bps"`
	TakeProfit1      float64       `mapstructure:"take_profit_1"`
	TakeProfit2      float64       `mapstructure:"take_profit_2"`
	SellPercentage1  float64       `mapstructure:"sell_percentage_1"`
	SellPercentage2  float64       `mapstructure:"sell_percentage_2"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PostgresURL      string        `mapstructure:"postgres_url"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	// Keygen settings are optional; a plain length check is used when unset.
	KeygenAccountID    string `mapstructure:"keygen_account_id"`
	KeygenProductToken string `mapstructure:"keygen_product_token"`
	KeygenProductID    string `mapstructure:"keygen_product_id"`
	Dashboard          bool   `mapstructure:"dashboard"`
	ExportDir          string `mapstructure:"export_dir"`
	LogFile            string `mapstructure:"log_file"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
}

const (
	DefaultPumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	DefaultBuyAmountSOL     = 0.1
	DefaultSlippageBps      = 50
	DefaultTakeProfit1      = 4.0
	DefaultTakeProfit2      = 8.0
	DefaultSellPercentage1  = 50.0
	DefaultSellPercentage2  = 100.0
	DefaultPollInterval     = 5 * time.Second
	DefaultMetricsAddr      = ":2112"
	DefaultExportDir        = "exports"
	DefaultLogFile          = "logs/sniper.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"pumpfun_program_id": DefaultPumpFunProgramID,
		"buy_amount_sol":     DefaultBuyAmountSOL,
		"slippage_bps":       DefaultSlippageBps,
		"take_profit_1":      DefaultTakeProfit1,
		"take_profit_2":      DefaultTakeProfit2,
		"sell_percentage_1":  DefaultSellPercentage1,
		"sell_percentage_2":  DefaultSellPercentage2,
		"poll_interval":      DefaultPollInterval.String(),
		"metrics_addr":       DefaultMetricsAddr,
		"export_dir":         DefaultExportDir,
		"log_file":           DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	if cfg.WebSocketURL == "" {
		cfg.WebSocketURL = deriveWebSocketURL(cfg.RPCURL)
	}

	return &cfg, validateConfig(&cfg)
}

// deriveWebSocketURL maps an RPC endpoint to its websocket twin.
// Most Solana providers serve both on the same host.
func deriveWebSocketURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return ""
	}
}

func validateConfig(cfg *Config) error {
	if cfg.License == "" {
		return errors.New("missing license in configuration")
	}
	if cfg.PrivateKey == "" {
		return errors.New("missing private_key in configuration")
	}
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.WebSocketURL == "" {
		return errors.New("websocket_url is empty and cannot be derived from rpc_url")
	}
	if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	if err := validateProgramID(cfg.PumpFunProgramID); err != nil {
		return fmt.Errorf("invalid pumpfun_program_id: %w", err)
	}
	if cfg.QuoteURL != "" {
		if err := validateURLWithCache(cfg.QuoteURL, "http"); err != nil {
			return errors.New("invalid quote URL protocol")
		}
	}
	if cfg.PriceURL != "" {
		if err := validateURLWithCache(cfg.PriceURL, "http"); err != nil {
			return errors.New("invalid price URL protocol")
		}
	}
	return validateTradingParams(cfg)
}

func validateTradingParams(cfg *Config) error {
	if cfg.BuyAmountSOL <= 0 {
		return errors.New("invalid buy_amount_sol")
	}
	if cfg.SlippageBps == 0 || cfg.SlippageBps > 10000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.TakeProfit1 <= 1 {
		return errors.New("take_profit_1 must exceed 1x")
	}
	if cfg.TakeProfit2 <= cfg.TakeProfit1 {
		return errors.New("take_profit_2 must exceed take_profit_1")
	}
	if cfg.SellPercentage1 <= 0 || cfg.SellPercentage1 > 100 {
		return errors.New("invalid sell_percentage_1")
	}
	if cfg.SellPercentage2 <= cfg.SellPercentage1 || cfg.SellPercentage2 > 100 {
		return errors.New("sell_percentage_2 must lie between sell_percentage_1 and 100")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	return nil
}

func validateProgramID(programID string) error {
	raw, err := base58.Decode(programID)
	if err != nil {
		return err
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded to %d bytes, want 32", len(raw))
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Secrets are the usual env-only settings.
	if envLicense := v.GetString("LICENSE"); envLicense != "" {
		cfg.License = envLicense
	}
	if envKey := v.GetString("PRIVATE_KEY"); envKey != "" {
		cfg.PrivateKey = envKey
	}
	if envRPC := v.GetString("RPC_URL"); envRPC != "" {
		cfg.RPCURL = envRPC
	}
	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}
	return nil
}
