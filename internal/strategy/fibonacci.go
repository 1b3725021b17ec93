package strategy

import "dragontiger-bot-go/internal/game"

// Fibonacci walks a lazily generated Fibonacci sequence: the cursor
// holds at the head for the first loss of a streak, advances one entry
// per further loss, and resets to the head on a win. Ties freeze it.
type Fibonacci struct {
	progression
	sequence []float64
	cursor   int
}

// NewFibonacci creates a fibonacci strategy.
func NewFibonacci(preferred game.Side) *Fibonacci {
	return &Fibonacci{
		progression: newProgression(preferred),
		sequence:    []float64{1, 1},
	}
}

func (s *Fibonacci) Name() string { return "Fibonacci" }

// ChooseSide honours the configured side; in auto mode it alternates
// dragon/tiger on round parity. A cheap anti-correlation pick, not a
// read of the table's streaks.
func (s *Fibonacci) ChooseSide(_ *game.TableState) game.Side {
	if s.preferredSide.Valid() {
		return s.preferredSide
	}
	if len(s.history)%2 == 0 {
		return game.SideDragon
	}
	return game.SideTiger
}

func (s *Fibonacci) ComputeStake(baseAmount float64) float64 {
	if s.consecutiveLosses == 0 {
		return baseAmount
	}
	idx := s.cursor
	if idx > len(s.sequence)-1 {
		idx = len(s.sequence) - 1
	}
	return s.sequence[idx] * baseAmount
}

func (s *Fibonacci) Reset() {
	s.progression.Reset()
	s.sequence = s.sequence[:2]
	s.cursor = 0
}

func (s *Fibonacci) ConsumeOutcome(outcome Outcome) {
	s.record(outcome)
	switch outcome {
	case OutcomeWin:
		s.cursor = 0
	case OutcomeLoss:
		if s.consecutiveLosses == 1 {
			// A fresh streak starts at the head of the sequence.
			s.cursor = 0
			return
		}
		if s.cursor == len(s.sequence)-1 {
			n := len(s.sequence)
			s.sequence = append(s.sequence, s.sequence[n-1]+s.sequence[n-2])
		}
		s.cursor++
	}
}
