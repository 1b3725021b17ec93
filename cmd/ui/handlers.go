package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dragontiger-bot-go/internal/engine"
	"dragontiger-bot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log    *zap.Logger
	db     *gorm.DB
	engine *engine.Engine
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, eng *engine.Engine) *APIHandler {
	return &APIHandler{log: log, db: db, engine: eng}
}

// StatusHandler returns the engine's current status snapshot.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.Snapshot()); err != nil {
		h.log.Error("Failed to write status response", zap.Error(err))
	}
}

// LogsHandler returns the log tail, most recent last. The optional
// ?max=N query bounds the number of lines (default 100).
func (h *APIHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	max := 100
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "max must be a positive integer", http.StatusBadRequest)
			return
		}
		max = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.engine.LogTail(max))
}

// StartHandler launches a betting session.
func (h *APIHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.engine.Start(); err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			http.Error(w, "bot is already running", http.StatusConflict)
			return
		}
		h.log.Error("Failed to start engine", zap.Error(err))
		http.Error(w, "failed to start bot", http.StatusInternalServerError)
		return
	}

	h.log.Info("Bot started via API")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "started")
}

// StopHandler stops the running session. Stopping an already stopped
// bot is a no-op, not an error.
func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.engine.Stop()
	h.log.Info("Bot stopped via API")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "stopped")
}

// RoundsHandler returns recent settled rounds.
func (h *APIHandler) RoundsHandler(w http.ResponseWriter, r *http.Request) {
	var rounds []models.Round
	// Order by most recent first
	if err := h.db.Order("timestamp desc").Limit(200).Find(&rounds).Error; err != nil {
		h.log.Error("Failed to get rounds from database", zap.Error(err))
		http.Error(w, "Failed to get rounds", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rounds)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalRounds int64   `json:"total_rounds"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	Ties        int64   `json:"ties"`
	WinRate     float64 `json:"win_rate"`
	NetUnits    float64 `json:"net_units"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns betting statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var rounds []models.Round
	if err := h.db.Find(&rounds).Error; err != nil {
		h.log.Error("Failed to get rounds for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since24h := time.Now().Add(-24 * time.Hour).Unix()

	stats24h := StatsDetail{}
	statsAllTime := StatsDetail{}

	for _, round := range rounds {
		tally(&statsAllTime, &round)
		if round.Timestamp >= since24h {
			tally(&stats24h, &round)
		}
	}

	finalize(&statsAllTime)
	finalize(&stats24h)

	response := StatisticsResponse{
		Since24h: stats24h,
		AllTime:  statsAllTime,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// tally folds one round into a stats bucket. Dragon Tiger main bets pay
// even money, so net units move by the stake.
func tally(stats *StatsDetail, round *models.Round) {
	stats.TotalRounds++
	switch round.Outcome {
	case "win":
		stats.Wins++
		stats.NetUnits += round.Stake
	case "loss":
		stats.Losses++
		stats.NetUnits -= round.Stake
	case "tie":
		stats.Ties++
	}
}

// finalize computes the win rate over decided (non-tie) rounds.
func finalize(stats *StatsDetail) {
	decided := stats.Wins + stats.Losses
	if decided > 0 {
		stats.WinRate = float64(stats.Wins) / float64(decided)
	}
}

// PingHandler is a liveness probe.
func (h *APIHandler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}
