// internal/sniping/sniper.go

// Package sniping turns detected token creations into open positions.
package sniping

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
)

// Evaluator decides whether a detected token is worth buying.
type Evaluator interface {
	Evaluate(ev *pumpfun.TokenCreationEvent) (ok bool, reason string)
}

// Config wires the sniper's trading dependencies and sizing.
type Config struct {
	BuyAmountSOL      float64
	SlippageBps       uint64
	ProfitMultiplier1 float64
	ProfitMultiplier2 float64

	Venue   dex.Venue
	Store   *position.Store
	Filter  Evaluator          // optional, nil trades everything
	Journal storage.Journal    // optional, defaults to NopJournal
	Bus     *events.Bus        // optional
	Metrics *metrics.Collector // optional
	Logger  *zap.Logger
}

// Sniper is the intake for freshly created tokens: evaluate, buy,
// register the position.
type Sniper struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config) (*Sniper, error) {
	if cfg.Venue == nil {
		return nil, fmt.Errorf("sniping: venue is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("sniping: position store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("sniping: logger is required")
	}
	if cfg.BuyAmountSOL <= 0 {
		return nil, fmt.Errorf("sniping: invalid buy amount: %f", cfg.BuyAmountSOL)
	}
	if cfg.Journal == nil {
		cfg.Journal = storage.NopJournal{}
	}

	return &Sniper{
		cfg:    cfg,
		logger: cfg.Logger.Named("sniper"),
	}, nil
}

// HandleToken processes one detected token end to end. Failures are
// logged and dropped so the event stream keeps flowing; nothing is
// retried. A mint seen twice is traded twice.
func (s *Sniper) HandleToken(ctx context.Context, ev *pumpfun.TokenCreationEvent) {
	s.publish(events.TokenDetectedEvent{
		BaseEvent: events.BaseEvent{EventType: events.TokenDetected, EventTime: time.Now()},
		Mint:      ev.Mint,
		Name:      ev.Name,
		Symbol:    ev.Symbol,
		Signature: ev.Signature,
	})

	if s.cfg.Filter != nil {
		if ok, reason := s.cfg.Filter.Evaluate(ev); !ok {
			s.logger.Warn("⚠️ Token skipped",
				zap.String("mint", ev.Mint),
				zap.String("name", ev.Name),
				zap.String("reason", reason))
			s.recordToken(metrics.TokenSkipped)
			s.publish(events.TokenSkippedEvent{
				BaseEvent: events.BaseEvent{EventType: events.TokenSkipped, EventTime: time.Now()},
				Mint:      ev.Mint,
				Name:      ev.Name,
				Symbol:    ev.Symbol,
				Reason:    reason,
			})
			return
		}
	}

	s.logger.Info("🚀 Sniping token",
		zap.String("mint", ev.Mint),
		zap.String("name", ev.Name),
		zap.String("symbol", ev.Symbol),
		zap.Float64("buy_amount_sol", s.cfg.BuyAmountSOL))

	result, err := s.cfg.Venue.Buy(ctx, ev.Mint, s.cfg.BuyAmountSOL, s.cfg.SlippageBps)
	if err != nil {
		s.logger.Error("❌ Buy failed",
			zap.String("mint", ev.Mint),
			zap.String("name", ev.Name),
			zap.Error(err))
		s.recordToken(metrics.TokenBuyFailed)
		return
	}

	now := time.Now()
	pos := &position.Position{
		MintAddress:       ev.Mint,
		Name:              ev.Name,
		Symbol:            ev.Symbol,
		BuyPrice:          result.Price,
		CurrentPrice:      result.Price,
		TokenAmountHeld:   result.TokenAmount,
		SolSpent:          result.SolSpent,
		ProfitTarget1:     result.Price * s.cfg.ProfitMultiplier1,
		ProfitTarget2:     result.Price * s.cfg.ProfitMultiplier2,
		Status:            position.StatusActive,
		BuySignature:      result.Signature,
		CreatedAt:         now,
		LastPriceUpdateAt: now,
	}
	id := s.cfg.Store.Insert(pos)

	if err := s.cfg.Journal.RecordOpen(ctx, *pos); err != nil {
		s.logger.Warn("Failed to journal position",
			zap.String("mint", ev.Mint),
			zap.Error(err))
	}

	s.recordToken(metrics.TokenSniped)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetOpenPositions(s.cfg.Store.OpenCount())
	}

	s.publish(events.PositionOpenedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.PositionOpened, EventTime: now},
		PositionID:  id,
		Mint:        ev.Mint,
		Name:        ev.Name,
		Symbol:      ev.Symbol,
		BuyPrice:    result.Price,
		SolSpent:    result.SolSpent,
		TokenAmount: result.TokenAmount,
		Signature:   result.Signature,
	})

	s.logger.Info("✅ Position opened",
		zap.Uint64("id", id),
		zap.String("mint", ev.Mint),
		zap.String("symbol", ev.Symbol),
		zap.Float64("buy_price", result.Price),
		zap.Uint64("tokens", result.TokenAmount),
		zap.String("signature", result.Signature))
}

func (s *Sniper) recordToken(result string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordToken(result)
	}
}

func (s *Sniper) publish(ev events.Event) {
	if s.cfg.Bus == nil {
		return
	}
	if err := s.cfg.Bus.Publish(ev); err != nil {
		s.logger.Debug("Event not published", zap.Error(err))
	}
}
