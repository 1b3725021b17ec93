package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"dragontiger-bot-go/internal/config"
	"dragontiger-bot-go/internal/database"
	"dragontiger-bot-go/internal/engine"
	"dragontiger-bot-go/internal/game"
	"dragontiger-bot-go/internal/logger"
	"dragontiger-bot-go/internal/strategy"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Build the engine; it stays idle until /api/start is called.
	preferred := game.Side(strings.ToLower(cfg.Betting.PreferredSide))
	strat, err := strategy.New(cfg.Betting.Strategy, preferred, cfg.Betting.ParoliWinsToReset)
	if err != nil {
		log.Fatal("Failed to build strategy", zap.Error(err))
	}
	client := game.NewClient(&cfg.Game, log)
	botEngine := engine.NewEngine(log, &cfg.Betting, client, strat, db)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Create a handler that has access to the logger, db and engine
	apiHandler := NewAPIHandler(log, db, botEngine)

	// API endpoints
	mux.HandleFunc("/api/status", apiHandler.StatusHandler)
	mux.HandleFunc("/api/logs", apiHandler.LogsHandler)
	mux.HandleFunc("/api/start", apiHandler.StartHandler)
	mux.HandleFunc("/api/stop", apiHandler.StopHandler)
	mux.HandleFunc("/api/rounds", apiHandler.RoundsHandler)
	mux.HandleFunc("/api/statistics", apiHandler.StatisticsHandler)
	mux.HandleFunc("/ping", apiHandler.PingHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web control surface", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
