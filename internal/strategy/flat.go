package strategy

import "dragontiger-bot-go/internal/game"

// Flat always stakes the base amount.
type Flat struct {
	progression
}

// NewFlat creates a flat-betting strategy.
func NewFlat(preferred game.Side) *Flat {
	return &Flat{progression: newProgression(preferred)}
}

func (s *Flat) Name() string { return "Flat" }

func (s *Flat) ChooseSide(_ *game.TableState) game.Side {
	return s.chooseSide()
}

func (s *Flat) ComputeStake(baseAmount float64) float64 {
	return baseAmount
}

func (s *Flat) ConsumeOutcome(outcome Outcome) {
	s.record(outcome)
}
