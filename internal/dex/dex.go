// =============================
// File: internal/dex/dex.go
// =============================

// Package dex defines the trade venue contract the sniper trades through.
package dex

import (
	"context"
	"math"
)

// TokenDecimals is the decimal count of pump.fun mints. Raw amounts in
// venue calls are denominated in these smallest units.
const TokenDecimals = 6

// TokensToHuman converts a raw smallest-unit amount to whole tokens.
func TokensToHuman(raw uint64) float64 {
	return float64(raw) / math.Pow10(TokenDecimals)
}

// BuyResult describes a filled buy.
type BuyResult struct {
	SolSpent    float64 // SOL paid, including what the quote consumed
	TokenAmount uint64  // tokens received, raw smallest units
	Price       float64 // SOL per whole token at fill
	Signature   string  // transaction signature
}

// Venue executes swaps against an external liquidity source and quotes
// current prices. Implementations must be safe for concurrent use; the
// intake pipeline and the price monitor call them from separate
// goroutines.
type Venue interface {
	// Name returns the venue name for logs and metrics.
	Name() string

	// Buy swaps solAmount SOL into the given mint.
	Buy(ctx context.Context, mint string, solAmount float64, slippageBps uint64) (*BuyResult, error)

	// Sell swaps tokenAmount raw units of mint back to SOL and returns
	// the transaction signature.
	Sell(ctx context.Context, mint string, tokenAmount uint64, slippageBps uint64) (string, error)

	// CurrentPrice returns the SOL price per whole token.
	CurrentPrice(ctx context.Context, mint string) (float64, error)
}
