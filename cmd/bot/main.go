package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dragontiger-bot-go/internal/config"
	"dragontiger-bot-go/internal/database"
	"dragontiger-bot-go/internal/engine"
	"dragontiger-bot-go/internal/game"
	"dragontiger-bot-go/internal/logger"
	"dragontiger-bot-go/internal/strategy"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Build the configured betting strategy
	preferred := game.Side(strings.ToLower(cfg.Betting.PreferredSide))
	strat, err := strategy.New(cfg.Betting.Strategy, preferred, cfg.Betting.ParoliWinsToReset)
	if err != nil {
		log.Fatal("Failed to build strategy", zap.Error(err))
	}
	log.Info("Strategy selected",
		zap.String("strategy", strat.Name()),
		zap.String("preferred_side", string(preferred)),
		zap.Float64("base_stake", cfg.Betting.BaseStake))

	// Initialize table API client
	client := game.NewClient(&cfg.Game, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize and run the betting engine
	botEngine := engine.NewEngine(log, &cfg.Betting, client, strat, db)
	if err := botEngine.Run(ctx); err != nil {
		log.Fatal("Engine terminated with error", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
