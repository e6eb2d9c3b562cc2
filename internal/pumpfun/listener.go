package pumpfun

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
)

// DefaultReconnectWait is the fixed pause between subscription attempts.
const DefaultReconnectWait = 5 * time.Second

// EventHandler consumes one extracted token creation. Handlers run in
// their own goroutine per event; returning is the only contract.
type EventHandler func(ctx context.Context, event *TokenCreationEvent)

// ListenerConfig carries the dependencies for a Listener.
type ListenerConfig struct {
	WSEndpoint    string
	ProgramID     solana.PublicKey
	ReconnectWait time.Duration
	OnEvent       EventHandler
	Logger        *zap.Logger
	Metrics       *metrics.Collector
}

// Listener owns the logs subscription on the pump.fun program. It feeds
// every "create" notification through the extractor and hands events to
// the intake handler without waiting for it. Connection and subscription
// failures are retried forever on a fixed backoff; the loop ends only on
// context cancellation.
type Listener struct {
	cfg    *ListenerConfig
	logger *zap.Logger

	wg sync.WaitGroup // in-flight intake handlers
}

// NewListener validates the config and creates a Listener.
func NewListener(cfg *ListenerConfig) (*Listener, error) {
	if cfg.WSEndpoint == "" {
		return nil, fmt.Errorf("websocket endpoint is required")
	}
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program ID is required")
	}
	if cfg.OnEvent == nil {
		return nil, fmt.Errorf("event handler is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = DefaultReconnectWait
	}

	return &Listener{
		cfg:    cfg,
		logger: cfg.Logger.Named("listener"),
	}, nil
}

// Run blocks on the subscribe/receive loop until ctx is cancelled. Every
// failure is logged and followed by the reconnect pause, never returned:
// the steady state of the process is this loop.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("🚀 Watching pump.fun program logs",
		zap.String("program", l.cfg.ProgramID.String()),
		zap.String("endpoint", l.cfg.WSEndpoint))

	for {
		err := l.subscribeAndListen(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			l.logger.Error("❌ Subscription error, reconnecting",
				zap.Error(err),
				zap.Duration("wait", l.cfg.ReconnectWait))
		} else {
			l.logger.Warn("⚠️ Subscription ended, reconnecting",
				zap.Duration("wait", l.cfg.ReconnectWait))
		}

		if l.cfg.Metrics != nil {
			l.cfg.Metrics.RecordReconnect()
		}

		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.ReconnectWait):
			continue
		}
		break
	}

	l.drain()
	l.logger.Info("🛑 Listener stopped")
	return nil
}

// subscribeAndListen opens one subscription and receives until the stream
// breaks or ctx is cancelled.
func (l *Listener) subscribeAndListen(ctx context.Context) error {
	client, err := ws.Connect(ctx, l.cfg.WSEndpoint)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(l.cfg.ProgramID, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("logs subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	l.logger.Info("📡 Subscribed to program logs")

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if msg == nil {
			return nil
		}
		if msg.Value.Err != nil {
			// Failed transaction, nothing was created.
			continue
		}

		logs := msg.Value.Logs
		if !hasCreateMarker(logs) {
			continue
		}

		sig := msg.Value.Signature.String()
		l.logger.Debug("Potential token creation", zap.String("tx", sig))

		event, ok := Extract(logs, sig)
		if !ok {
			l.logger.Debug("No valid token creation in transaction", zap.String("tx", sig))
			continue
		}

		if l.cfg.Metrics != nil {
			l.cfg.Metrics.RecordEventExtracted()
		}
		l.logger.Info("✨ New token detected",
			zap.String("name", event.Name),
			zap.String("symbol", event.Symbol),
			zap.String("mint", event.Mint),
			zap.String("tx", sig))

		l.dispatch(ctx, event)
	}
}

// dispatch runs the intake handler in its own goroutine. A failure or
// panic in one token's intake never touches the subscription.
func (l *Listener) dispatch(ctx context.Context, event *TokenCreationEvent) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("💥 Intake panicked",
					zap.Any("panic", r),
					zap.String("mint", event.Mint))
			}
		}()
		l.cfg.OnEvent(ctx, event)
	}()
}

// drain waits for in-flight intakes, bounded so shutdown cannot hang on a
// stuck venue call.
func (l *Listener) drain() {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		l.logger.Warn("⚠️ Timed out waiting for in-flight intakes")
	}
}
