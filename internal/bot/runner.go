// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/jupiter"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/export"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/license"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/sniping"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/ui"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

const busBufferSize = 256

// Runner owns the long-lived pieces of the sniper and supervises the
// intake listener, the price monitor and the auxiliary surfaces.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	wallet  *wallet.Wallet
	venue   dex.Venue
	store   *position.Store
	bus     *events.Bus
	alerts  *monitor.AlertManager
	metrics *metrics.Collector
}

// NewRunner builds the context-free dependencies from config. Pieces
// that need a context (journal, listener, monitor) are built in Run.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	w, err := wallet.New(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	collector := metrics.NewCollector(logger)

	venue, err := jupiter.New(jupiter.Config{
		QuoteURL:    cfg.QuoteURL,
		PriceURL:    cfg.PriceURL,
		RPCEndpoint: cfg.RPCURL,
		Wallet:      w,
		FeeAccount:  cfg.FeeAccount,
		Logger:      logger,
		Metrics:     collector,
	})
	if err != nil {
		return nil, fmt.Errorf("init venue: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		logger:  logger,
		wallet:  w,
		venue:   venue,
		store:   position.NewStore(logger),
		bus:     events.NewBus(logger, busBufferSize),
		alerts:  monitor.NewAlertManager(monitor.DefaultAlertConfig(), logger),
		metrics: collector,
	}, nil
}

// Run validates the license, wires the pipeline and blocks until ctx is
// cancelled, the dashboard quits or a component fails.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.validateLicense(ctx); err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}

	r.logBalance(ctx)

	journal, err := r.openJournal(ctx)
	if err != nil {
		return err
	}
	defer journal.Close()

	// Alert feed listens for position milestones from the trading loop.
	targetSub := r.bus.SubscribeFunc(events.TargetHit, r.alerts.HandleEvent)
	defer targetSub.Unsubscribe()
	closedSub := r.bus.SubscribeFunc(events.PositionClosed, r.alerts.HandleEvent)
	defer closedSub.Unsubscribe()

	sniper, err := sniping.New(sniping.Config{
		BuyAmountSOL:      r.cfg.BuyAmountSOL,
		SlippageBps:       r.cfg.SlippageBps,
		ProfitMultiplier1: r.cfg.TakeProfit1,
		ProfitMultiplier2: r.cfg.TakeProfit2,
		Venue:             r.venue,
		Store:             r.store,
		Filter:            sniping.NewSafetyFilter(r.logger),
		Journal:           journal,
		Bus:               r.bus,
		Metrics:           r.metrics,
		Logger:            r.logger,
	})
	if err != nil {
		return err
	}

	programID, err := solana.PublicKeyFromBase58(r.cfg.PumpFunProgramID)
	if err != nil {
		return fmt.Errorf("parse program ID: %w", err)
	}

	listener, err := pumpfun.NewListener(&pumpfun.ListenerConfig{
		WSEndpoint: r.cfg.WebSocketURL,
		ProgramID:  programID,
		OnEvent:    sniper.HandleToken,
		Logger:     r.logger,
		Metrics:    r.metrics,
	})
	if err != nil {
		return err
	}

	poller, err := monitor.NewPoller(monitor.PollerConfig{
		PollInterval:      r.cfg.PollInterval,
		SlippageBps:       r.cfg.SlippageBps,
		ProfitMultiplier1: r.cfg.TakeProfit1,
		ProfitMultiplier2: r.cfg.TakeProfit2,
		SellPercentage1:   r.cfg.SellPercentage1,
		SellPercentage2:   r.cfg.SellPercentage2,
		Venue:             r.venue,
		Store:             r.store,
		Journal:           journal,
		Bus:               r.bus,
		Alerts:            r.alerts,
		Metrics:           r.metrics,
		Logger:            r.logger,
	})
	if err != nil {
		return err
	}

	r.logger.Info("🚀 Sniper is live",
		zap.String("wallet", r.wallet.String()),
		zap.String("program", r.cfg.PumpFunProgramID),
		zap.Float64("buy_amount_sol", r.cfg.BuyAmountSOL),
		zap.Float64("target_1", r.cfg.TakeProfit1),
		zap.Float64("target_2", r.cfg.TakeProfit2))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return listener.Run(gCtx)
	})
	g.Go(func() error {
		return poller.Run(gCtx)
	})
	if r.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return r.metrics.Serve(gCtx, r.cfg.MetricsAddr)
		})
	}
	if r.cfg.Dashboard {
		g.Go(func() error {
			// Quitting the dashboard stops the whole sniper.
			defer cancel()
			return ui.Run(gCtx, ui.Config{
				Positions: r.store,
				Alerts:    r.alerts,
				OnExport:  r.exportNow,
			})
		})
	}

	err = g.Wait()

	r.shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openJournal connects the postgres trade journal when a DSN is
// configured and falls back to the no-op journal otherwise.
func (r *Runner) openJournal(ctx context.Context) (storage.Journal, error) {
	if r.cfg.PostgresURL == "" {
		return storage.NopJournal{}, nil
	}

	journal, err := storage.NewPostgresJournal(ctx, r.cfg.PostgresURL, r.logger)
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	return journal, nil
}

// logBalance reports the wallet balance at startup. Failures are not
// fatal: the RPC node may simply be slow to answer.
func (r *Runner) logBalance(ctx context.Context) {
	balCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	balance, err := r.wallet.BalanceSOL(balCtx, rpc.New(r.cfg.RPCURL))
	if err != nil {
		r.logger.Warn("⚠️ Could not fetch wallet balance", zap.Error(err))
		return
	}

	r.logger.Info("💰 Wallet ready",
		zap.String("address", r.wallet.String()),
		zap.Float64("balance_sol", balance))

	if balance < r.cfg.BuyAmountSOL {
		r.logger.Warn("⚠️ Wallet balance is below the buy amount",
			zap.Float64("balance_sol", balance),
			zap.Float64("buy_amount_sol", r.cfg.BuyAmountSOL))
	}
}

// shutdown drains the event bus and writes the final position export.
func (r *Runner) shutdown() {
	r.logger.Info("👋 Sniper shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.bus.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("Event bus shutdown", zap.Error(err))
	}

	r.exportSnapshot()
}

// exportNow writes a CSV snapshot of every position. Serves both the
// dashboard export key and the shutdown export.
func (r *Runner) exportNow() (string, error) {
	if r.cfg.ExportDir == "" {
		return "", errors.New("export directory is not configured")
	}

	exporter := export.NewSnapshotExporter(r.logger)
	return exporter.Export(r.store.Snapshot(), export.Options{
		Format:    export.FormatCSV,
		OutputDir: r.cfg.ExportDir,
	})
}

// exportSnapshot writes the final CSV so a run leaves a record even
// without a postgres journal.
func (r *Runner) exportSnapshot() {
	if r.cfg.ExportDir == "" || r.store.Len() == 0 {
		return
	}

	path, err := r.exportNow()
	if err != nil {
		r.logger.Warn("Final position export failed", zap.Error(err))
		return
	}
	r.logger.Info("📊 Final positions exported", zap.String("path", path))
}

// validateLicense validates the license using either Keygen or fallback validation
func (r *Runner) validateLicense(ctx context.Context) error {
	// Check if Keygen is configured
	if r.cfg.KeygenAccountID != "" && r.cfg.KeygenProductToken != "" && r.cfg.KeygenProductID != "" {
		return r.validateWithKeygen(ctx)
	}

	// Fallback to simple validation
	return r.validateSimple()
}

// validateWithKeygen validates license using Keygen.sh
func (r *Runner) validateWithKeygen(ctx context.Context) error {
	r.logger.Info("🔑 Validating license with Keygen.sh")

	validator := license.NewKeygenValidator(
		r.cfg.KeygenAccountID,
		r.cfg.KeygenProductToken,
		r.cfg.KeygenProductID,
		r.logger,
	)

	if err := validator.ValidateLicense(ctx, r.cfg.License); err != nil {
		return fmt.Errorf("keygen validation failed: %w", err)
	}

	r.logger.Info("✅ License validated with Keygen.sh")
	return nil
}

// validateSimple performs basic license validation (fallback)
func (r *Runner) validateSimple() error {
	if r.cfg.License == "" {
		return fmt.Errorf("license key is required")
	}

	if len(r.cfg.License) < 8 {
		return fmt.Errorf("license key is too short")
	}

	r.logger.Info("✅ License validated (basic mode)")
	return nil
}
