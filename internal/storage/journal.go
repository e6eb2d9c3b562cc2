// Package storage persists the trade history produced by the sniper.
package storage

import (
	"context"
	"time"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// SellRecord describes one executed sell, partial or final.
type SellRecord struct {
	Mint           string
	Symbol         string
	Stage          string // "first" or "final"
	TokensSold     uint64
	SoldPercentage float64 // cumulative after this sell
	PriceRatio     float64
	Signature      string
	ExecutedAt     time.Time
}

// Journal records opened positions and executed sells. Implementations
// must be safe for concurrent use; callers treat failures as
// best-effort and never abort a trade over them.
type Journal interface {
	RecordOpen(ctx context.Context, p position.Position) error
	RecordSell(ctx context.Context, rec SellRecord) error
	Close()
}

// NopJournal discards everything. Used when no database is configured.
type NopJournal struct{}

func (NopJournal) RecordOpen(context.Context, position.Position) error { return nil }
func (NopJournal) RecordSell(context.Context, SellRecord) error        { return nil }
func (NopJournal) Close()                                              {}

var _ Journal = NopJournal{}
