package models

import "gorm.io/gorm"

// Session represents one run of the betting engine, from acquire to
// teardown.
type Session struct {
	gorm.Model
	Strategy     string  `json:"strategy"`
	BaseStake    float64 `json:"base_stake"`
	RoundsPlayed int     `json:"rounds_played"`
	StopReason   string  `json:"stop_reason"` // "stopped", "stop-loss" or "error"
	StartedAt    int64   `json:"started_at"`
	EndedAt      int64   `json:"ended_at"`
}
