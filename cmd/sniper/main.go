// ====================================
// File: cmd/sniper/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/bot"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logging"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	dashboard := flag.Bool("dashboard", false, "render the live terminal dashboard")
	flag.Parse()

	// Create context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dashboard {
		cfg.Dashboard = true
	}

	logCfg := logging.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	// The dashboard owns the terminal, so the console core stays quiet.
	logCfg.Console = !cfg.Dashboard

	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logging.Sync(logger)

	runner, err := bot.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatal("💥 Failed to initialize sniper", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("💥 Sniper exited with error", zap.Error(err))
	}
}
