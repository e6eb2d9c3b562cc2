package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// AlertType represents different types of alerts
type AlertType string

const (
	AlertTypePriceDrop AlertType = "price_drop"
	AlertTypeLossLimit AlertType = "loss_limit"
	AlertTypeStale     AlertType = "stale_position"
	AlertTypeTargetHit AlertType = "target_hit"
	AlertTypeClosed    AlertType = "position_closed"
)

// Alert represents a triggered alert
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Mint      string    `json:"mint"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // "info", "warning", "critical"

	PnLPercent float64 `json:"pnl_percent,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// AlertConfig holds alert thresholds. A zero threshold disables the
// corresponding check.
type AlertConfig struct {
	// Price drop alert (positive percentage, alert below -X%)
	PriceDropPercent float64

	// Loss limit alert (positive percentage, alert below -X%)
	LossLimitPercent float64

	// How long a position may go without a successful price reading.
	StaleAfter time.Duration

	// Per-mint cooldown between sweep alerts to prevent spam.
	Cooldown time.Duration
}

// DefaultAlertConfig returns default alert thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		PriceDropPercent: 10.0,
		LossLimitPercent: 20.0,
		StaleAfter:       2 * time.Minute,
		Cooldown:         5 * time.Minute,
	}
}

// AlertManager watches positions and the trading bus for conditions a
// human should look at. It never acts on them: selling is the price
// monitor's job.
type AlertManager struct {
	mu     sync.Mutex
	config AlertConfig
	logger *zap.Logger

	alerts    []Alert
	maxAlerts int
	lastAlert map[string]time.Time // mint -> last sweep alert
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(config AlertConfig, logger *zap.Logger) *AlertManager {
	return &AlertManager{
		config:    config,
		logger:    logger.Named("alerts"),
		alerts:    make([]Alert, 0, 100),
		maxAlerts: 1000,
		lastAlert: make(map[string]time.Time),
	}
}

// CheckPosition inspects one open position after a price update and
// returns any alerts it raised.
func (am *AlertManager) CheckPosition(pos position.Position) []Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	var triggered []Alert
	now := time.Now()

	if last, ok := am.lastAlert[pos.MintAddress]; ok && now.Sub(last) < am.config.Cooldown {
		return triggered
	}

	if pos.CurrentPrice > 0 {
		pnl := pos.PnLPercent()

		if am.config.PriceDropPercent > 0 && pnl < -am.config.PriceDropPercent {
			triggered = append(triggered, am.record(Alert{
				ID:         fmt.Sprintf("alert_%d", now.UnixNano()),
				Type:       AlertTypePriceDrop,
				Timestamp:  now,
				Mint:       pos.MintAddress,
				Symbol:     pos.Symbol,
				Message:    fmt.Sprintf("Price dropped %.1f%% for %s", -pnl, pos.Symbol),
				Severity:   "warning",
				PnLPercent: pnl,
				Threshold:  -am.config.PriceDropPercent,
			}))
		}

		if am.config.LossLimitPercent > 0 && pnl < -am.config.LossLimitPercent {
			triggered = append(triggered, am.record(Alert{
				ID:         fmt.Sprintf("alert_%d", now.UnixNano()),
				Type:       AlertTypeLossLimit,
				Timestamp:  now,
				Mint:       pos.MintAddress,
				Symbol:     pos.Symbol,
				Message:    fmt.Sprintf("LOSS LIMIT! %.1f%% for %s", pnl, pos.Symbol),
				Severity:   "critical",
				PnLPercent: pnl,
				Threshold:  -am.config.LossLimitPercent,
			}))
		}
	}

	if am.config.StaleAfter > 0 && now.Sub(pos.LastPriceUpdateAt) > am.config.StaleAfter {
		triggered = append(triggered, am.record(Alert{
			ID:        fmt.Sprintf("alert_%d", now.UnixNano()),
			Type:      AlertTypeStale,
			Timestamp: now,
			Mint:      pos.MintAddress,
			Symbol:    pos.Symbol,
			Message:   fmt.Sprintf("No price for %s since %s", pos.Symbol, pos.LastPriceUpdateAt.Format(time.TimeOnly)),
			Severity:  "info",
		}))
	}

	if len(triggered) > 0 {
		am.lastAlert[pos.MintAddress] = now
	}

	return triggered
}

// HandleEvent records trading milestones published on the event bus.
// Milestones bypass the cooldown: they are actions taken, not noise.
func (am *AlertManager) HandleEvent(_ context.Context, event events.Event) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	switch e := event.(type) {
	case events.TargetHitEvent:
		am.record(Alert{
			ID:         fmt.Sprintf("alert_%d", now.UnixNano()),
			Type:       AlertTypeTargetHit,
			Timestamp:  now,
			Mint:       e.Mint,
			Symbol:     e.Symbol,
			Message:    fmt.Sprintf("🎯 %s target hit for %s at %.2fx, sold up to %.0f%%", e.Stage, e.Symbol, e.PriceRatio, e.SoldPercentage),
			Severity:   "info",
			PnLPercent: (e.PriceRatio - 1) * 100,
		})
	case events.PositionClosedEvent:
		am.record(Alert{
			ID:         fmt.Sprintf("alert_%d", now.UnixNano()),
			Type:       AlertTypeClosed,
			Timestamp:  now,
			Mint:       e.Mint,
			Symbol:     e.Symbol,
			Message:    fmt.Sprintf("🏁 Position closed for %s, PnL %.1f%%", e.Symbol, e.PnLPercent),
			Severity:   "info",
			PnLPercent: e.PnLPercent,
		})
	}
	return nil
}

// record appends to the ring and logs; caller holds the lock.
func (am *AlertManager) record(alert Alert) Alert {
	if len(am.alerts) >= am.maxAlerts {
		am.alerts = am.alerts[1:]
	}
	am.alerts = append(am.alerts, alert)

	switch alert.Severity {
	case "critical":
		am.logger.Error("Alert triggered",
			zap.String("type", string(alert.Type)),
			zap.String("token", alert.Symbol),
			zap.String("message", alert.Message))
	case "warning":
		am.logger.Warn("Alert triggered",
			zap.String("type", string(alert.Type)),
			zap.String("token", alert.Symbol),
			zap.String("message", alert.Message))
	default:
		am.logger.Info("Alert triggered",
			zap.String("type", string(alert.Type)),
			zap.String("token", alert.Symbol),
			zap.String("message", alert.Message))
	}

	return alert
}

// Recent returns the most recent alerts, newest last.
func (am *AlertManager) Recent(limit int) []Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	if limit <= 0 || limit > len(am.alerts) {
		limit = len(am.alerts)
	}

	start := len(am.alerts) - limit
	result := make([]Alert, limit)
	copy(result, am.alerts[start:])

	return result
}
