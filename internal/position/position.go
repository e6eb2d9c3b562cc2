// Package position owns the shared collection of sniped token positions.
package position

import (
	"fmt"
	"strconv"
	"time"
)

// Lifecycle status tags. Partial exits use StatusSoldPercent.
const (
	StatusActive    = "Active"
	StatusFullySold = "Fully Sold"
)

// StatusSoldPercent formats the partial-exit status tag, e.g. "Sold 50%".
func StatusSoldPercent(p float64) string {
	return fmt.Sprintf("Sold %s%%", strconv.FormatFloat(p, 'f', -1, 64))
}

// Position represents one sniped token and its exit progress.
// BuyPrice and CurrentPrice are SOL per whole token. TokenAmountHeld is the
// raw amount in the token's smallest units as filled at buy time; partial
// sells never shrink it, they advance SoldPercentage instead and each sell
// is computed as a percentage of the original fill.
type Position struct {
	ID                uint64    `json:"id"`
	MintAddress       string    `json:"mint"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	BuyPrice          float64   `json:"buy_price"`
	CurrentPrice      float64   `json:"current_price"`
	TokenAmountHeld   uint64    `json:"token_amount"`
	SolSpent          float64   `json:"sol_spent"`
	SoldPercentage    float64   `json:"sold_percentage"`
	ProfitTarget1     float64   `json:"profit_target_1"`
	ProfitTarget2     float64   `json:"profit_target_2"`
	Status            string    `json:"status"`
	BuySignature      string    `json:"buy_signature"`
	CreatedAt         time.Time `json:"created_at"`
	LastPriceUpdateAt time.Time `json:"last_price_update_at"`
}

// Open reports whether the position still has tokens to sell.
func (p *Position) Open() bool {
	return p.SoldPercentage < 100
}

// PriceRatio returns CurrentPrice relative to BuyPrice.
func (p *Position) PriceRatio() float64 {
	if p.BuyPrice == 0 {
		return 0
	}
	return p.CurrentPrice / p.BuyPrice
}

// PnLPercent returns the unrealized move in percent.
func (p *Position) PnLPercent() float64 {
	return (p.PriceRatio() - 1) * 100
}
