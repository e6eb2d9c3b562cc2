package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
license: "TEST-LICENSE-KEY-123"
private_key: "test-wallet-key-validated-elsewhere"
rpc_url: "https://api.mainnet-beta.solana.com"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	if cfg.WebSocketURL != "wss://api.mainnet-beta.solana.com" {
		t.Errorf("derived websocket URL = %q", cfg.WebSocketURL)
	}
	if cfg.PumpFunProgramID != DefaultPumpFunProgramID {
		t.Errorf("program ID = %q", cfg.PumpFunProgramID)
	}
	if cfg.BuyAmountSOL != DefaultBuyAmountSOL {
		t.Errorf("buy amount = %v", cfg.BuyAmountSOL)
	}
	if cfg.SlippageBps != DefaultSlippageBps {
		t.Errorf("slippage = %v", cfg.SlippageBps)
	}
	if cfg.TakeProfit1 != DefaultTakeProfit1 || cfg.TakeProfit2 != DefaultTakeProfit2 {
		t.Errorf("take profits = %v, %v", cfg.TakeProfit1, cfg.TakeProfit2)
	}
	if cfg.SellPercentage1 != DefaultSellPercentage1 || cfg.SellPercentage2 != DefaultSellPercentage2 {
		t.Errorf("sell percentages = %v, %v", cfg.SellPercentage1, cfg.SellPercentage2)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("poll interval = %v", cfg.PollInterval)
	}
	if cfg.MetricsAddr != DefaultMetricsAddr {
		t.Errorf("metrics addr = %q", cfg.MetricsAddr)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, minimalConfig+`
websocket_url: "wss://ws.example.com"
quote_url: "https://quote.example.com/v6"
buy_amount_sol: 0.25
slippage_bps: 100
take_profit_1: 2.0
take_profit_2: 3.0
sell_percentage_1: 30
sell_percentage_2: 100
poll_interval: 2s
dashboard: true
postgres_url: "postgres://sniper:pw@localhost:5432/sniper"
`))
	require.NoError(t, err)

	if cfg.WebSocketURL != "wss://ws.example.com" {
		t.Errorf("explicit websocket URL ignored, got %q", cfg.WebSocketURL)
	}
	if cfg.BuyAmountSOL != 0.25 || cfg.SlippageBps != 100 {
		t.Errorf("trade settings = %v SOL, %v bps", cfg.BuyAmountSOL, cfg.SlippageBps)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.PollInterval)
	}
	if !cfg.Dashboard {
		t.Error("dashboard flag not set")
	}
	if cfg.PostgresURL == "" {
		t.Error("postgres URL not set")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SNIPER_LICENSE", "ENV-LICENSE-KEY-456")
	t.Setenv("SNIPER_POSTGRES_URL", "postgres://env:pw@db:5432/sniper")

	cfg, err := LoadConfig(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	if cfg.License != "ENV-LICENSE-KEY-456" {
		t.Errorf("license = %q, env override lost", cfg.License)
	}
	if cfg.PostgresURL != "postgres://env:pw@db:5432/sniper" {
		t.Errorf("postgres URL = %q", cfg.PostgresURL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing license",
			yaml:    strings.Replace(minimalConfig, "license:", "license_disabled:", 1),
			wantErr: "license",
		},
		{
			name:    "missing private key",
			yaml:    strings.Replace(minimalConfig, "private_key:", "private_key_disabled:", 1),
			wantErr: "private_key",
		},
		{
			name:    "missing rpc url",
			yaml:    strings.Replace(minimalConfig, "rpc_url:", "rpc_url_disabled:", 1),
			wantErr: "rpc_url",
		},
		{
			name:    "bad rpc protocol",
			yaml:    strings.Replace(minimalConfig, "https://api.mainnet-beta.solana.com", "ftp://api.mainnet-beta.solana.com", 1),
			wantErr: "RPC URL",
		},
		{
			name:    "bad program id characters",
			yaml:    minimalConfig + "pumpfun_program_id: \"not-base58-at-all!!\"\n",
			wantErr: "pumpfun_program_id",
		},
		{
			name:    "bad program id length",
			yaml:    minimalConfig + "pumpfun_program_id: \"abc\"\n",
			wantErr: "pumpfun_program_id",
		},
		{
			name:    "zero buy amount",
			yaml:    minimalConfig + "buy_amount_sol: 0\n",
			wantErr: "buy_amount_sol",
		},
		{
			name:    "slippage too large",
			yaml:    minimalConfig + "slippage_bps: 20000\n",
			wantErr: "slippage_bps",
		},
		{
			name:    "inverted take profits",
			yaml:    minimalConfig + "take_profit_1: 4.0\ntake_profit_2: 3.0\n",
			wantErr: "take_profit_2",
		},
		{
			name:    "second sell below first",
			yaml:    minimalConfig + "sell_percentage_1: 50\nsell_percentage_2: 40\n",
			wantErr: "sell_percentage_2",
		},
		{
			name:    "zero poll interval",
			yaml:    minimalConfig + "poll_interval: 0s\n",
			wantErr: "poll_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, tt.yaml))
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveWebSocketURL(t *testing.T) {
	tests := []struct {
		rpc  string
		want string
	}{
		{"https://api.mainnet-beta.solana.com", "wss://api.mainnet-beta.solana.com"},
		{"http://localhost:8899", "ws://localhost:8899"},
		{"not-a-url", ""},
	}
	for _, tt := range tests {
		if got := deriveWebSocketURL(tt.rpc); got != tt.want {
			t.Errorf("deriveWebSocketURL(%q) = %q, want %q", tt.rpc, got, tt.want)
		}
	}
}
