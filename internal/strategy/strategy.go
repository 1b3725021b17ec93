package strategy

import (
	"fmt"
	"strings"

	"dragontiger-bot-go/internal/game"
)

// Outcome classifies a settled round relative to the side we bet on.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeTie  Outcome = "tie"
)

// maxHistoryLength bounds the outcome history kept per session.
const maxHistoryLength = 50

// Strategy decides which side to bet, how much to stake, and when a
// losing streak must stop the session. Implementations keep all of
// their progression state internally; the engine only feeds settled
// outcomes back in through ConsumeOutcome.
type Strategy interface {
	// Name returns the display name of the strategy.
	Name() string

	// ChooseSide picks the side for the next bet. The table state is
	// available but side choice is user policy here: no shipped
	// strategy derives it from observed results.
	ChooseSide(state *game.TableState) game.Side

	// ComputeStake derives the next stake from the current progression
	// state. It is a pure function and never mutates the strategy.
	ComputeStake(baseAmount float64) float64

	// ConsumeOutcome feeds a settled round into the progression.
	ConsumeOutcome(outcome Outcome)

	// Reset returns the progression to its initial state so a new
	// session starts clean. The configured side preference survives.
	Reset()

	// ShouldContinue reports whether the loss streak is still below
	// the configured stop-loss.
	ShouldContinue(maxConsecutiveLosses int) bool

	// ConsecutiveLosses returns the current loss streak.
	ConsecutiveLosses() int

	// ConsecutiveWins returns the current win streak.
	ConsecutiveWins() int

	// HistoryLen returns the number of recorded outcomes, capped at
	// the history bound.
	HistoryLen() int
}

// progression is the state shared by every variant: a bounded record of
// recent outcomes, the streak counters, and the configured side
// preference. At most one of the two streak counters is nonzero.
type progression struct {
	history           []Outcome
	consecutiveLosses int
	consecutiveWins   int
	preferredSide     game.Side
}

func newProgression(preferred game.Side) progression {
	if !preferred.Valid() {
		preferred = game.SideAuto
	}
	return progression{
		history:       make([]Outcome, 0, maxHistoryLength),
		preferredSide: preferred,
	}
}

// record applies the shared win/loss/tie counter rules and appends the
// outcome to the bounded history. A tie leaves both streaks untouched.
func (p *progression) record(outcome Outcome) {
	switch outcome {
	case OutcomeLoss:
		p.consecutiveLosses++
		p.consecutiveWins = 0
	case OutcomeWin:
		p.consecutiveWins++
		p.consecutiveLosses = 0
	}

	if len(p.history) < maxHistoryLength {
		p.history = append(p.history, outcome)
		return
	}
	// Evict the oldest entry in place; capacity stays fixed.
	copy(p.history, p.history[1:])
	p.history[len(p.history)-1] = outcome
}

// chooseSide is the default side policy: honour the configured side,
// otherwise bet dragon.
func (p *progression) chooseSide() game.Side {
	if p.preferredSide.Valid() {
		return p.preferredSide
	}
	return game.SideDragon
}

// Reset clears the history and both streak counters.
func (p *progression) Reset() {
	p.history = p.history[:0]
	p.consecutiveLosses = 0
	p.consecutiveWins = 0
}

// ShouldContinue is the stop-loss rule shared by every variant.
func (p *progression) ShouldContinue(maxConsecutiveLosses int) bool {
	return p.consecutiveLosses < maxConsecutiveLosses
}

func (p *progression) ConsecutiveLosses() int { return p.consecutiveLosses }

func (p *progression) ConsecutiveWins() int { return p.consecutiveWins }

func (p *progression) HistoryLen() int { return len(p.history) }

// New builds the strategy named in the configuration.
func New(name string, preferred game.Side, paroliWinsToReset int) (Strategy, error) {
	switch strings.ToLower(name) {
	case "flat":
		return NewFlat(preferred), nil
	case "martingale":
		return NewMartingale(preferred), nil
	case "fibonacci":
		return NewFibonacci(preferred), nil
	case "dalembert", "d'alembert":
		return NewDAlembert(preferred), nil
	case "paroli":
		return NewParoli(preferred, paroliWinsToReset), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
