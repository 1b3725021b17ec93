package strategy

import "dragontiger-bot-go/internal/game"

// DefaultParoliWinsToReset is the win streak length that banks the
// profit and restarts the progression.
const DefaultParoliWinsToReset = 3

// Paroli is the one positive progression: the stake doubles after each
// win and drops back to the base amount on any loss, or once the win
// target is reached. The stop-loss parameter is honoured purely as an
// external fuse; losses already reset the progression on their own.
type Paroli struct {
	progression
	winsToReset int
}

// NewParoli creates a paroli strategy. winsToReset values below 1 fall
// back to the default target.
func NewParoli(preferred game.Side, winsToReset int) *Paroli {
	if winsToReset < 1 {
		winsToReset = DefaultParoliWinsToReset
	}
	return &Paroli{
		progression: newProgression(preferred),
		winsToReset: winsToReset,
	}
}

func (s *Paroli) Name() string { return "Paroli" }

func (s *Paroli) ChooseSide(_ *game.TableState) game.Side {
	return s.chooseSide()
}

func (s *Paroli) ComputeStake(baseAmount float64) float64 {
	if s.consecutiveWins == 0 || s.consecutiveWins >= s.winsToReset {
		return baseAmount
	}
	return baseAmount * float64(uint(1)<<uint(s.consecutiveWins))
}

func (s *Paroli) ConsumeOutcome(outcome Outcome) {
	s.record(outcome)
}
