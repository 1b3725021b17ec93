package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"dragontiger-bot-go/internal/config"
	"dragontiger-bot-go/internal/game"
	"dragontiger-bot-go/internal/models"
	"dragontiger-bot-go/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockSurface is a mock implementation of game.SurfaceInterface.
type MockSurface struct {
	mock.Mock
}

func (m *MockSurface) Acquire(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSurface) Release() {
	m.Called()
}

func (m *MockSurface) GetTableState() (*game.TableState, error) {
	args := m.Called()
	if state := args.Get(0); state != nil {
		return state.(*game.TableState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSurface) GetBalance() (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockSurface) PlaceBet(side game.Side, amount float64) (bool, error) {
	args := m.Called(side, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockSurface) ResolveOutcome() (game.RawResult, error) {
	args := m.Called()
	return args.Get(0).(game.RawResult), args.Error(1)
}

func testBetting() *config.Betting {
	return &config.Betting{
		BaseStake:            1,
		WaitSeconds:          1,
		MaxConsecutiveLosses: 5,
		PreferredSide:        "dragon",
		Strategy:             "flat",
		ParoliWinsToReset:    3,
	}
}

// newTestEngine wires an engine with a no-op logger, no persistence and
// millisecond wait ticks so tests run fast.
func newTestEngine(cfg *config.Betting, surface game.SurfaceInterface, strat strategy.Strategy) *Engine {
	e := NewEngine(zap.NewNop(), cfg, surface, strat, nil)
	e.tick = time.Millisecond
	return e
}

func tableState() *game.TableState {
	return &game.TableState{RoundID: "r-1", Phase: "betting"}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, strategy.OutcomeTie, Classify(game.SideDragon, game.ResultTie))
	assert.Equal(t, strategy.OutcomeWin, Classify(game.SideDragon, game.ResultDragon))
	assert.Equal(t, strategy.OutcomeWin, Classify(game.SideTiger, game.ResultTiger))
	assert.Equal(t, strategy.OutcomeLoss, Classify(game.SideDragon, game.ResultTiger))
	assert.Equal(t, strategy.OutcomeLoss, Classify(game.SideTiger, game.ResultDragon))
	// An unresolved outcome is conservatively a loss, never dropped.
	assert.Equal(t, strategy.OutcomeLoss, Classify(game.SideDragon, game.ResultUnknown))
	assert.Equal(t, strategy.OutcomeLoss, Classify(game.SideTiger, game.ResultUnknown))
}

func TestRun_StopLossStopsLoop(t *testing.T) {
	// Flat strategy, base 1, five straight losses: the loop must stop
	// on its own once the fifth loss is consumed.
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", game.SideDragon, 1.0).Return(true, nil)
	surface.On("ResolveOutcome").Return(game.ResultTiger, nil)

	err := e.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, strat.ConsecutiveLosses())
	assert.Equal(t, 5, strat.HistoryLen())
	surface.AssertNumberOfCalls(t, "PlaceBet", 5)
	surface.AssertNumberOfCalls(t, "Release", 1)
	assert.Contains(t, e.Snapshot().CurrentAction, "stopped")
}

func TestRun_UnknownOutcomeCountsAsLoss(t *testing.T) {
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	ctx, cancel := context.WithCancel(context.Background())

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", game.SideDragon, 1.0).Return(true, nil)
	surface.On("ResolveOutcome").Return(game.ResultUnknown, nil).Run(func(mock.Arguments) {
		cancel() // one settled round is enough
	})

	err := e.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, strat.ConsecutiveLosses())
	assert.Equal(t, 1, strat.HistoryLen())
}

func TestRun_BankrollGuardSkipsBet(t *testing.T) {
	// Stake above the known balance: no bet is placed and the strategy
	// sees no outcome.
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	cfg := testBetting()
	cfg.BaseStake = 50
	e := newTestEngine(cfg, surface, strat)

	ctx, cancel := context.WithCancel(context.Background())
	rounds := 0

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(10.0, nil)
	surface.On("GetTableState").Return(tableState(), nil).Run(func(mock.Arguments) {
		rounds++
		if rounds >= 3 {
			cancel()
		}
	})

	err := e.Run(ctx)

	require.NoError(t, err)
	surface.AssertNotCalled(t, "PlaceBet", mock.Anything, mock.Anything)
	surface.AssertNotCalled(t, "ResolveOutcome")
	assert.Equal(t, 0, strat.HistoryLen())
}

func TestRun_PlacementFailureDoesNotFeedStrategy(t *testing.T) {
	surface := new(MockSurface)
	strat := strategy.NewMartingale(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", game.SideDragon, 1.0).Return(false, nil).Run(func(mock.Arguments) {
		attempts++
		if attempts >= 2 {
			cancel()
		}
	})

	err := e.Run(ctx)

	require.NoError(t, err)
	surface.AssertNotCalled(t, "ResolveOutcome")
	assert.Equal(t, 0, strat.HistoryLen())
	// The rejected bets never escalated the progression.
	assert.Equal(t, 1.0, strat.ComputeStake(1))
}

func TestRun_ObservationFailureIsNotALoss(t *testing.T) {
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	ctx, cancel := context.WithCancel(context.Background())
	reads := 0

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(nil, errors.New("stream stalled")).Run(func(mock.Arguments) {
		reads++
		if reads >= 3 {
			cancel()
		}
	})

	err := e.Run(ctx)

	require.NoError(t, err)
	surface.AssertNotCalled(t, "PlaceBet", mock.Anything, mock.Anything)
	assert.Equal(t, 0, strat.HistoryLen())
	assert.Equal(t, 0, strat.ConsecutiveLosses())
}

func TestRun_AcquireFailureIsFatal(t *testing.T) {
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	surface.On("Acquire", mock.Anything).Return(errors.New("table unreachable"))

	err := e.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "table unreachable")
	surface.AssertNotCalled(t, "Release")
}

func TestStartStop(t *testing.T) {
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	// Keep the loop cycling through the retry path until stopped.
	surface.On("GetTableState").Return(nil, errors.New("not ready"))

	// Stopping before starting is a no-op.
	e.Stop()

	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), ErrAlreadyRunning)

	e.Stop()
	e.Stop() // idempotent

	surface.AssertNumberOfCalls(t, "Release", 1)

	// Start/Stop lifecycle is restartable; what a restart does to the
	// progression is covered by the stop-loss restart tests.
	require.NoError(t, e.Start())
	e.Stop()
	surface.AssertNumberOfCalls(t, "Release", 2)
}

func TestRestartAfterStopLossStartsFresh(t *testing.T) {
	// A session that ended on the stop-loss must not poison the next
	// one: restarting bets again from a clean streak instead of
	// stopping immediately on round one.
	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", game.SideDragon, 1.0).Return(true, nil)
	surface.On("ResolveOutcome").Return(game.ResultTiger, nil)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 5, strat.ConsecutiveLosses())
	surface.AssertNumberOfCalls(t, "PlaceBet", 5)

	// Second session: another full run to the stop-loss, not zero bets.
	require.NoError(t, e.Run(context.Background()))
	surface.AssertNumberOfCalls(t, "PlaceBet", 10)
	surface.AssertNumberOfCalls(t, "Release", 2)
	assert.Equal(t, 5, strat.ConsecutiveLosses())
	assert.Equal(t, 5, strat.HistoryLen())
}

func TestStartAgainAfterStopLoss(t *testing.T) {
	// Same property through the public Start path used by the control
	// surface: after a self-stop, Start must run a fresh session.
	surface := new(MockSurface)
	strat := strategy.NewMartingale(game.SideDragon)
	e := newTestEngine(testBetting(), surface, strat)

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(1000.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", mock.Anything, mock.Anything).Return(true, nil)
	surface.On("ResolveOutcome").Return(game.ResultTiger, nil)

	require.NoError(t, e.Start())
	waitUntilStopped(t, e)

	require.NoError(t, e.Start())
	waitUntilStopped(t, e)

	// Two stop-loss runs of five bets each, both escalating from the
	// base stake: the first bet of the second session is 1.0 again.
	surface.AssertNumberOfCalls(t, "PlaceBet", 10)
	surface.AssertCalled(t, "PlaceBet", game.SideDragon, 1.0)
	placeBets := 0
	baseBets := 0
	for _, call := range surface.Calls {
		if call.Method != "PlaceBet" {
			continue
		}
		placeBets++
		if call.Arguments.Get(1).(float64) == 1.0 {
			baseBets++
		}
	}
	assert.Equal(t, 10, placeBets)
	assert.Equal(t, 2, baseBets, "each session must open at the base stake")
}

// waitUntilStopped blocks until the self-stopping session has finished.
func waitUntilStopped(t *testing.T, e *Engine) {
	t.Helper()
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop in time")
	}
}

func TestRun_PersistsRoundsAndSession(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}, &models.Round{}))

	surface := new(MockSurface)
	strat := strategy.NewFlat(game.SideDragon)
	e := NewEngine(zap.NewNop(), testBetting(), surface, strat, db)
	e.tick = time.Millisecond

	surface.On("Acquire", mock.Anything).Return(nil)
	surface.On("Release").Return()
	surface.On("GetBalance").Return(100.0, nil)
	surface.On("GetTableState").Return(tableState(), nil)
	surface.On("PlaceBet", game.SideDragon, 1.0).Return(true, nil)
	surface.On("ResolveOutcome").Return(game.ResultTiger, nil)

	require.NoError(t, e.Run(context.Background()))

	var rounds []models.Round
	require.NoError(t, db.Find(&rounds).Error)
	assert.Len(t, rounds, 5)
	assert.Equal(t, "loss", rounds[0].Outcome)
	assert.Equal(t, "tiger", rounds[0].RawResult)

	var sess models.Session
	require.NoError(t, db.First(&sess).Error)
	assert.Equal(t, "Flat", sess.Strategy)
	assert.Equal(t, "stop-loss", sess.StopReason)
	assert.Equal(t, 5, sess.RoundsPlayed)
}
