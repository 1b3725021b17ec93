package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dragontiger-bot-go/internal/config"
	"dragontiger-bot-go/internal/game"
	"dragontiger-bot-go/internal/models"
	"dragontiger-bot-go/internal/strategy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State identifies a phase of the round state machine.
type State string

const (
	StateIdle             State = "idle"
	StateInitializing     State = "initializing"
	StateAwaitingState    State = "awaiting_state"
	StateDeciding         State = "deciding"
	StateCheckingBankroll State = "checking_bankroll"
	StateBetting          State = "betting"
	StateAwaitingOutcome  State = "awaiting_outcome"
	StateSettling         State = "settling"
	StateWaiting          State = "waiting"
	StateStopped          State = "stopped"
)

// balanceCheckInterval is how many rounds pass between balance reads.
const balanceCheckInterval = 5

// ErrAlreadyRunning is returned by Start when a session is in flight.
var ErrAlreadyRunning = errors.New("engine is already running")

// Engine drives the round loop: observe, decide, stake, bet, resolve,
// update, wait. A single worker goroutine owns the state machine; the
// status publisher is the only state shared with readers.
type Engine struct {
	logger   *zap.Logger
	cfg      *config.Betting
	surface  game.SurfaceInterface
	strategy strategy.Strategy
	db       *gorm.DB // optional round persistence
	status   *StatusPublisher

	state   State
	current Snapshot
	tick    time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEngine creates a new betting engine. db may be nil to disable
// round persistence.
func NewEngine(logger *zap.Logger, cfg *config.Betting, surface game.SurfaceInterface, strat strategy.Strategy, db *gorm.DB) *Engine {
	return &Engine{
		logger:   logger,
		cfg:      cfg,
		surface:  surface,
		strategy: strat,
		db:       db,
		status:   NewStatusPublisher(),
		state:    StateIdle,
		tick:     time.Second,
	}
}

// Start launches the round loop in its own goroutine. It fails when a
// session is already running.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.running = true

	go func() {
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			close(done)
		}()
		if err := e.Run(ctx); err != nil {
			e.logger.Error("Engine stopped with error", zap.Error(err))
		}
	}()

	return nil
}

// Stop requests cancellation and waits for teardown to finish.
// Stopping an engine that is not running is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
}

// Snapshot returns the latest published status.
func (e *Engine) Snapshot() Snapshot {
	return e.status.Snapshot()
}

// LogTail returns up to max log lines, most recent last.
func (e *Engine) LogTail(max int) []string {
	return e.status.LogTail(max)
}

// Run executes the round loop until a stop condition fires or ctx is
// cancelled. The table session is released on every exit path.
func (e *Engine) Run(ctx context.Context) error {
	// Every session starts with a clean progression; a loss streak from
	// an earlier start must not stop the new session on round one.
	e.strategy.Reset()
	e.current = Snapshot{LastOutcome: "n/a"}
	e.transition(StateInitializing, "Initializing...")
	e.announce("Acquiring table session...")

	if err := e.surface.Acquire(ctx); err != nil {
		e.announce("Failed to acquire table session.")
		e.transition(StateStopped, "Stopped: session acquisition failed.")
		return fmt.Errorf("failed to acquire game surface: %w", err)
	}
	defer e.surface.Release()

	sess := e.beginSession()
	stopReason := "stopped"
	roundsPlayed := 0
	defer func() {
		e.endSession(sess, stopReason, roundsPlayed)
		e.transition(StateStopped, "Bot stopped.")
		e.announce("Bot stopped. Table session released.")
	}()

	balance, balanceKnown := e.readBalance()
	e.current.Balance, e.current.BalanceKnown = balance, balanceKnown

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			return nil
		}

		if !e.strategy.ShouldContinue(e.cfg.MaxConsecutiveLosses) {
			e.announce(fmt.Sprintf("Max %d consecutive losses reached. Stopping bot.", e.cfg.MaxConsecutiveLosses))
			stopReason = "stop-loss"
			return nil
		}

		if !balanceKnown || round%balanceCheckInterval == 0 {
			balance, balanceKnown = e.readBalance()
			e.current.Balance, e.current.BalanceKnown = balance, balanceKnown
		}

		e.transition(StateAwaitingState, "Reading table state...")
		state, err := e.surface.GetTableState()
		if err != nil || state == nil {
			e.logger.Warn("Could not retrieve table state", zap.Error(err))
			e.announce("Could not retrieve table state. Retrying next round.")
			if !e.waitNextRound(ctx) {
				return nil
			}
			continue
		}

		e.transition(StateDeciding, "Analyzing table state...")
		side := e.strategy.ChooseSide(state)
		if !side.Valid() {
			// No shipped strategy declines to pick, but tolerate it.
			e.announce("Strategy chose no side this round. Waiting.")
			if !e.waitNextRound(ctx) {
				return nil
			}
			continue
		}

		e.transition(StateCheckingBankroll, "Checking bankroll...")
		stake := e.strategy.ComputeStake(e.cfg.BaseStake)
		e.current.CurrentStake = stake
		if balanceKnown && stake > balance {
			e.logger.Warn("Stake exceeds balance, skipping bet",
				zap.Float64("stake", stake), zap.Float64("balance", balance))
			e.announce(fmt.Sprintf("Stake %.2f exceeds balance %.2f. Skipping bet.", stake, balance))
			if !e.waitNextRound(ctx) {
				return nil
			}
			continue
		}

		e.transition(StateBetting, fmt.Sprintf("Placing bet: %s for %.2f", side, stake))
		e.announce(fmt.Sprintf("Placing bet on %s for %.2f", side, stake))
		accepted, err := e.surface.PlaceBet(side, stake)
		if err != nil || !accepted {
			// A failed placement is not a game outcome and never feeds
			// the progression.
			e.logger.Warn("Bet placement failed", zap.String("side", string(side)), zap.Error(err))
			e.announce("Bet placement failed. Waiting for next round.")
			if !e.waitNextRound(ctx) {
				return nil
			}
			continue
		}

		e.transition(StateAwaitingOutcome, "Bet placed. Awaiting outcome...")
		raw, err := e.surface.ResolveOutcome()
		if err != nil {
			e.logger.Warn("Could not resolve round outcome", zap.Error(err))
			raw = game.ResultUnknown
		}

		e.transition(StateSettling, "Settling round...")
		outcome := Classify(side, raw)
		if raw == game.ResultUnknown {
			e.announce("Outcome unknown. Counting it as a loss.")
		}
		e.strategy.ConsumeOutcome(outcome)
		roundsPlayed++

		e.logger.Info("Round settled",
			zap.String("side", string(side)),
			zap.Float64("stake", stake),
			zap.String("raw_result", string(raw)),
			zap.String("outcome", string(outcome)),
			zap.Int("consecutive_losses", e.strategy.ConsecutiveLosses()))
		e.announce(fmt.Sprintf("Outcome: %s (%s). Consecutive losses: %d.",
			raw, outcome, e.strategy.ConsecutiveLosses()))

		e.recordRound(sess, side, stake, raw, outcome, balance)

		e.current.LastOutcome = string(raw)
		e.publishAction(fmt.Sprintf("Outcome: %s. Waiting...", raw))

		if !e.waitNextRound(ctx) {
			return nil
		}
	}
}

// waitNextRound sleeps the configured inter-round delay in short ticks
// so cancellation is honoured within roughly one tick. It returns false
// when the session was cancelled.
func (e *Engine) waitNextRound(ctx context.Context) bool {
	e.state = StateWaiting
	for i := e.cfg.WaitSeconds; i > 0; i-- {
		e.publishAction(fmt.Sprintf("Waiting for next round... %ds", i))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.tick):
		}
	}
	return true
}

// transition moves the state machine and publishes the action text.
func (e *Engine) transition(next State, action string) {
	e.state = next
	e.logger.Debug("State transition", zap.String("state", string(next)))
	e.publishAction(action)
}

// publishAction publishes a fresh snapshot with the given action.
func (e *Engine) publishAction(action string) {
	e.current.State = e.state
	e.current.CurrentAction = action
	e.current.ConsecutiveLosses = e.strategy.ConsecutiveLosses()
	e.status.Publish(e.current)
}

// announce puts a line on the user-visible log tail.
func (e *Engine) announce(msg string) {
	e.status.Log(msg)
}

// readBalance fetches the balance, tolerating failure: an unknown
// balance disables the bankroll guard until the next successful read.
func (e *Engine) readBalance() (float64, bool) {
	balance, err := e.surface.GetBalance()
	if err != nil {
		e.logger.Warn("Could not read balance", zap.Error(err))
		return 0, false
	}
	return balance, true
}

// Classify maps a raw table result onto the outcome for the side that
// was bet. Unknown results count as losses: the stake was already at
// risk, and skipping the round would let the progression drift from
// real bankroll exposure.
func Classify(betSide game.Side, raw game.RawResult) strategy.Outcome {
	switch {
	case raw == game.ResultTie:
		return strategy.OutcomeTie
	case string(raw) == string(betSide):
		return strategy.OutcomeWin
	default:
		return strategy.OutcomeLoss
	}
}

func (e *Engine) beginSession() *models.Session {
	if e.db == nil {
		return nil
	}
	sess := &models.Session{
		Strategy:  e.strategy.Name(),
		BaseStake: e.cfg.BaseStake,
		StartedAt: time.Now().Unix(),
	}
	if err := e.db.Create(sess).Error; err != nil {
		e.logger.Error("Failed to create session record", zap.Error(err))
		return nil
	}
	return sess
}

func (e *Engine) endSession(sess *models.Session, reason string, rounds int) {
	if sess == nil {
		return
	}
	sess.StopReason = reason
	sess.RoundsPlayed = rounds
	sess.EndedAt = time.Now().Unix()
	if err := e.db.Save(sess).Error; err != nil {
		e.logger.Error("Failed to finalize session record", zap.Error(err))
	}
}

func (e *Engine) recordRound(sess *models.Session, side game.Side, stake float64, raw game.RawResult, outcome strategy.Outcome, balance float64) {
	if e.db == nil {
		return
	}
	round := models.Round{
		Strategy:          e.strategy.Name(),
		Side:              string(side),
		Stake:             stake,
		RawResult:         string(raw),
		Outcome:           string(outcome),
		ConsecutiveLosses: e.strategy.ConsecutiveLosses(),
		Balance:           balance,
		Timestamp:         time.Now().Unix(),
	}
	if sess != nil {
		round.SessionID = sess.ID
	}
	if err := e.db.Create(&round).Error; err != nil {
		e.logger.Error("Failed to save round record", zap.Error(err))
	}
}
