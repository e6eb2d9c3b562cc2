// =============================
// File: internal/dex/jupiter/client.go
// =============================

// Package jupiter routes buys and sells through the Jupiter v6 swap API
// and serves spot prices from the Jupiter price API.
package jupiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

const (
	DefaultQuoteURL = "https://quote-api.jup.ag/v6"
	DefaultPriceURL = "https://price.jup.ag/v4"

	// WSOLMint — обёрнутый SOL, входная сторона каждой покупки.
	WSOLMint = "So11111111111111111111111111111111111111112"

	LamportsPerSOL = 1_000_000_000

	// maxRouteAccounts ограничивает маршрут свапа, чтобы транзакция
	// помещалась в один пакет.
	maxRouteAccounts = 15

	defaultHTTPTimeout = 10 * time.Second
)

// Config описывает подключение к Jupiter и кошелёк, которым подписываются свапы.
type Config struct {
	QuoteURL    string
	PriceURL    string
	RPCEndpoint string
	Wallet      *wallet.Wallet
	// FeeAccount is an optional referral token account appended to swaps.
	FeeAccount  string
	HTTPTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

// Client implements dex.Venue on top of the Jupiter aggregator.
type Client struct {
	quoteURL   string
	priceURL   string
	feeAccount string
	http       *http.Client
	rpc        *rpc.Client
	wallet     *wallet.Wallet
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// New validates the config and returns a ready venue client.
func New(cfg Config) (*Client, error) {
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("jupiter: wallet is required")
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("jupiter: rpc endpoint is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("jupiter: logger is required")
	}
	if cfg.QuoteURL == "" {
		cfg.QuoteURL = DefaultQuoteURL
	}
	if cfg.PriceURL == "" {
		cfg.PriceURL = DefaultPriceURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	return &Client{
		quoteURL:   cfg.QuoteURL,
		priceURL:   cfg.PriceURL,
		feeAccount: cfg.FeeAccount,
		http:       &http.Client{Timeout: cfg.HTTPTimeout},
		rpc:        rpc.New(cfg.RPCEndpoint),
		wallet:     cfg.Wallet,
		logger:     cfg.Logger.Named("jupiter"),
		metrics:    cfg.Metrics,
	}, nil
}

func (c *Client) Name() string { return "jupiter" }

// Buy swaps solAmount SOL into the given mint and reports the entry price.
func (c *Client) Buy(ctx context.Context, mint string, solAmount float64, slippageBps uint64) (*dex.BuyResult, error) {
	if solAmount <= 0 {
		return nil, fmt.Errorf("buy amount must be positive, got %f", solAmount)
	}
	lamports := uint64(solAmount * LamportsPerSOL)

	quote, err := c.fetchQuote(ctx, WSOLMint, mint, lamports, slippageBps)
	if err != nil {
		return nil, fmt.Errorf("failed to quote buy: %w", err)
	}

	tokensOut, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoted out amount %q: %w", quote.OutAmount, err)
	}
	if tokensOut == 0 {
		return nil, fmt.Errorf("quote returned zero tokens for %s", mint)
	}

	sig, err := c.executeSwap(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to execute buy swap: %w", err)
	}

	// Цена входа: потраченные SOL на целый токен.
	price := solAmount / dex.TokensToHuman(tokensOut)

	c.logger.Info("💰 Buy executed",
		zap.String("mint", mint),
		zap.Float64("sol_spent", solAmount),
		zap.Uint64("tokens_out", tokensOut),
		zap.Float64("entry_price", price),
		zap.String("signature", sig.String()))

	return &dex.BuyResult{
		SolSpent:    solAmount,
		TokenAmount: tokensOut,
		Price:       price,
		Signature:   sig.String(),
	}, nil
}

// Sell swaps tokenAmount (smallest units) of mint back into SOL.
func (c *Client) Sell(ctx context.Context, mint string, tokenAmount uint64, slippageBps uint64) (string, error) {
	if tokenAmount == 0 {
		return "", fmt.Errorf("sell amount must be positive")
	}

	quote, err := c.fetchQuote(ctx, mint, WSOLMint, tokenAmount, slippageBps)
	if err != nil {
		return "", fmt.Errorf("failed to quote sell: %w", err)
	}

	sig, err := c.executeSwap(ctx, quote)
	if err != nil {
		return "", fmt.Errorf("failed to execute sell swap: %w", err)
	}

	c.logger.Info("📈 Sell executed",
		zap.String("mint", mint),
		zap.Uint64("tokens_in", tokenAmount),
		zap.String("out_amount", quote.OutAmount),
		zap.String("signature", sig.String()))

	return sig.String(), nil
}

// CurrentPrice returns the spot price of mint in SOL per whole token.
//
// Single attempt without retries: callers poll on a schedule and are
// expected to tolerate a missed reading.
func (c *Client) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	start := time.Now()
	defer c.observe("price", start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/price?ids=%s&vsToken=%s", c.priceURL, mint, WSOLMint), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := decodeJSON(resp.Body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	entry, ok := parsed.Data[mint]
	if !ok {
		return 0, fmt.Errorf("no price data for %s", mint)
	}
	return entry.Price, nil
}

func (c *Client) observe(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordVenueRequest(op, time.Since(start))
	}
}

var _ dex.Venue = (*Client)(nil)
