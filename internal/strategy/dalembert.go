package strategy

import "dragontiger-bot-go/internal/game"

// DAlembert raises the stake by one unit after a loss and lowers it by
// one unit after a win, never below a single unit.
type DAlembert struct {
	progression
	unitMultiplier int
}

// NewDAlembert creates a d'Alembert strategy.
func NewDAlembert(preferred game.Side) *DAlembert {
	return &DAlembert{
		progression:    newProgression(preferred),
		unitMultiplier: 1,
	}
}

func (s *DAlembert) Name() string { return "DAlembert" }

func (s *DAlembert) ChooseSide(_ *game.TableState) game.Side {
	return s.chooseSide()
}

func (s *DAlembert) ComputeStake(baseAmount float64) float64 {
	return float64(s.unitMultiplier) * baseAmount
}

func (s *DAlembert) Reset() {
	s.progression.Reset()
	s.unitMultiplier = 1
}

func (s *DAlembert) ConsumeOutcome(outcome Outcome) {
	s.record(outcome)
	switch outcome {
	case OutcomeWin:
		if s.unitMultiplier > 1 {
			s.unitMultiplier--
		}
	case OutcomeLoss:
		s.unitMultiplier++
	}
}
