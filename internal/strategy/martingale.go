package strategy

import "dragontiger-bot-go/internal/game"

// maxDoublings caps Martingale growth at 2^8 = 256 units. This is a
// safety ceiling on the stake itself, separate from the engine's
// bankroll guard.
const maxDoublings = 8

// Martingale doubles the stake after every loss and resets to the base
// amount after a win. Ties leave the stake where it was.
type Martingale struct {
	progression
}

// NewMartingale creates a martingale strategy.
func NewMartingale(preferred game.Side) *Martingale {
	return &Martingale{progression: newProgression(preferred)}
}

func (s *Martingale) Name() string { return "Martingale" }

func (s *Martingale) ChooseSide(_ *game.TableState) game.Side {
	return s.chooseSide()
}

func (s *Martingale) ComputeStake(baseAmount float64) float64 {
	if s.consecutiveLosses == 0 {
		return baseAmount
	}
	doublings := s.consecutiveLosses
	if doublings > maxDoublings {
		doublings = maxDoublings
	}
	return baseAmount * float64(uint(1)<<uint(doublings))
}

func (s *Martingale) ConsumeOutcome(outcome Outcome) {
	s.record(outcome)
}
