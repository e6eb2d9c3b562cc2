// Package monitor drives the exit side of every position: it polls
// prices on a fixed schedule, fires the two-step profit taking and
// raises alerts on the way down.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
)

// DefaultPollInterval is how often open positions are repriced.
const DefaultPollInterval = 5 * time.Second

// PollerConfig wires the price monitor's dependencies and exit rules.
//
// The exit ladder: when the price reaches ProfitMultiplier1 x buy price,
// SellPercentage1 percent of the original fill is sold; when it reaches
// ProfitMultiplier2 x, the position is topped up to SellPercentage2
// percent sold. One rung per tick, first rung wins.
type PollerConfig struct {
	PollInterval      time.Duration
	SlippageBps       uint64
	ProfitMultiplier1 float64
	ProfitMultiplier2 float64
	SellPercentage1   float64
	SellPercentage2   float64

	Venue   dex.Venue
	Store   *position.Store
	Journal storage.Journal    // optional, defaults to NopJournal
	Bus     *events.Bus        // optional
	Alerts  *AlertManager      // optional
	Metrics *metrics.Collector // optional
	Logger  *zap.Logger
}

// Poller owns the periodic price sweep over the position store.
type Poller struct {
	cfg    PollerConfig
	logger *zap.Logger
}

// candidate is the snapshot of one open position taken under the store
// lock. Network calls run against the snapshot, results are applied
// back by ID. The poller is the only writer of SoldPercentage, so the
// snapshot cannot go stale between collect and apply.
type candidate struct {
	id       uint64
	mint     string
	name     string
	symbol   string
	buyPrice float64
	soldPct  float64
	held     uint64
}

func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Venue == nil {
		return nil, fmt.Errorf("monitor: venue is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("monitor: position store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("monitor: logger is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Journal == nil {
		cfg.Journal = storage.NopJournal{}
	}

	return &Poller{
		cfg:    cfg,
		logger: cfg.Logger.Named("monitor"),
	}, nil
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("📊 Price monitor started",
		zap.Duration("interval", p.cfg.PollInterval),
		zap.Float64("target_1", p.cfg.ProfitMultiplier1),
		zap.Float64("target_2", p.cfg.ProfitMultiplier2))

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.sweep(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("🛑 Price monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// sweep reprices every open position once. Candidates are collected
// under the lock, priced and traded without it, and mutated via Apply.
func (p *Poller) sweep(ctx context.Context) {
	start := time.Now()

	var candidates []candidate
	p.cfg.Store.ForEachOpen(func(pos *position.Position) {
		candidates = append(candidates, candidate{
			id:       pos.ID,
			mint:     pos.MintAddress,
			name:     pos.Name,
			symbol:   pos.Symbol,
			buyPrice: pos.BuyPrice,
			soldPct:  pos.SoldPercentage,
			held:     pos.TokenAmountHeld,
		})
	})

	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}
		p.process(ctx, c)
	}

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RecordSweep(time.Since(start))
		p.cfg.Metrics.SetOpenPositions(p.cfg.Store.OpenCount())
	}
}

// process reprices one position and fires at most one exit rung.
func (p *Poller) process(ctx context.Context, c candidate) {
	price, err := p.cfg.Venue.CurrentPrice(ctx, c.mint)
	if err != nil {
		// Position stays as is, the next sweep tries again.
		p.logger.Warn("Failed to update price",
			zap.String("token", c.name),
			zap.String("mint", c.mint),
			zap.Error(err))
		return
	}

	now := time.Now()
	p.cfg.Store.Apply(c.id, func(pos *position.Position) {
		pos.CurrentPrice = price
		pos.LastPriceUpdateAt = now
	})

	var ratio float64
	if c.buyPrice > 0 {
		ratio = price / c.buyPrice
	}
	p.logger.Debug("Price updated",
		zap.String("token", c.name),
		zap.Float64("price", price),
		zap.Float64("ratio", ratio))

	switch {
	case c.soldPct < p.cfg.SellPercentage1 && ratio >= p.cfg.ProfitMultiplier1:
		p.executeSell(ctx, c, ratio, metrics.StageFirst)
	case c.soldPct < p.cfg.SellPercentage2 && ratio >= p.cfg.ProfitMultiplier2:
		p.executeSell(ctx, c, ratio, metrics.StageFinal)
	}

	if p.cfg.Alerts != nil {
		if pos, ok := p.cfg.Store.Get(c.id); ok && pos.Open() {
			p.cfg.Alerts.CheckPosition(pos)
		}
	}
}

// executeSell sells one rung of the exit ladder. A failed sell leaves
// SoldPercentage untouched so the same rung retries next sweep.
func (p *Poller) executeSell(ctx context.Context, c candidate, ratio float64, stage string) {
	var sellPct, newSoldPct float64
	var status string

	if stage == metrics.StageFirst {
		sellPct = p.cfg.SellPercentage1
		newSoldPct = p.cfg.SellPercentage1
		status = position.StatusSoldPercent(newSoldPct)
		p.logger.Info("🎯 First profit target hit",
			zap.String("token", c.name),
			zap.Float64("ratio", ratio),
			zap.Float64("selling_pct", sellPct))
	} else {
		sellPct = p.cfg.SellPercentage2 - c.soldPct
		newSoldPct = p.cfg.SellPercentage2
		status = position.StatusFullySold
		p.logger.Info("🎯 Second profit target hit, selling remaining",
			zap.String("token", c.name),
			zap.Float64("ratio", ratio),
			zap.Float64("selling_pct", sellPct))
	}

	tokens := uint64(float64(c.held) * sellPct / 100.0)

	sig, err := p.cfg.Venue.Sell(ctx, c.mint, tokens, p.cfg.SlippageBps)
	if err != nil {
		p.logger.Error("❌ Sell failed",
			zap.String("token", c.name),
			zap.String("stage", stage),
			zap.Error(err))
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RecordSell(stage, false)
		}
		return
	}

	p.cfg.Store.Apply(c.id, func(pos *position.Position) {
		pos.SoldPercentage = newSoldPct
		pos.Status = status
	})

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.RecordSell(stage, true)
	}

	if err := p.cfg.Journal.RecordSell(ctx, storage.SellRecord{
		Mint:           c.mint,
		Symbol:         c.symbol,
		Stage:          stage,
		TokensSold:     tokens,
		SoldPercentage: newSoldPct,
		PriceRatio:     ratio,
		Signature:      sig,
		ExecutedAt:     time.Now(),
	}); err != nil {
		p.logger.Warn("Failed to journal sell",
			zap.String("mint", c.mint),
			zap.Error(err))
	}

	p.publish(events.TargetHitEvent{
		BaseEvent:      events.BaseEvent{EventType: events.TargetHit, EventTime: time.Now()},
		PositionID:     c.id,
		Mint:           c.mint,
		Symbol:         c.symbol,
		Stage:          stage,
		PriceRatio:     ratio,
		SoldPercentage: newSoldPct,
		Signature:      sig,
	})

	p.logger.Info("💸 Sell confirmed",
		zap.String("token", c.name),
		zap.Uint64("tokens_sold", tokens),
		zap.Float64("sold_pct", newSoldPct),
		zap.String("signature", sig))

	if newSoldPct >= 100 {
		p.publish(events.PositionClosedEvent{
			BaseEvent:  events.BaseEvent{EventType: events.PositionClosed, EventTime: time.Now()},
			PositionID: c.id,
			Mint:       c.mint,
			Symbol:     c.symbol,
			PnLPercent: (ratio - 1) * 100,
		})
		p.logger.Info("🏁 Position fully closed",
			zap.String("token", c.name),
			zap.Float64("pnl_pct", (ratio-1)*100))
	}
}

func (p *Poller) publish(ev events.Event) {
	if p.cfg.Bus == nil {
		return
	}
	if err := p.cfg.Bus.Publish(ev); err != nil {
		p.logger.Debug("Event not published", zap.Error(err))
	}
}
