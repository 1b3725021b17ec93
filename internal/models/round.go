package models

import "gorm.io/gorm"

// Round represents a settled betting round.
type Round struct {
	gorm.Model
	SessionID         uint    `json:"session_id"`
	Strategy          string  `json:"strategy"`
	Side              string  `json:"side"`
	Stake             float64 `json:"stake"`
	RawResult         string  `json:"raw_result"`
	Outcome           string  `json:"outcome"` // "win", "loss" or "tie"
	ConsecutiveLosses int     `json:"consecutive_losses"`
	Balance           float64 `json:"balance"`
	Timestamp         int64   `json:"timestamp"`
}
