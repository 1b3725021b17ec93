package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPublisher_SnapshotReplacedWholesale(t *testing.T) {
	p := NewStatusPublisher()

	initial := p.Snapshot()
	assert.Equal(t, "Idle", initial.CurrentAction)

	p.Publish(Snapshot{CurrentAction: "Placing bet", CurrentStake: 4, Balance: 96, BalanceKnown: true})
	p.Publish(Snapshot{CurrentAction: "Waiting"})

	// The second publish replaces everything; no fields from the first
	// publish survive.
	got := p.Snapshot()
	assert.Equal(t, "Waiting", got.CurrentAction)
	assert.Zero(t, got.CurrentStake)
	assert.False(t, got.BalanceKnown)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStatusPublisher_LogTail(t *testing.T) {
	p := NewStatusPublisher()

	for i := 1; i <= 5; i++ {
		p.Log(fmt.Sprintf("event %d", i))
	}

	tail := p.LogTail(3)
	assert.Len(t, tail, 3)
	assert.Contains(t, tail[0], "event 3")
	assert.Contains(t, tail[2], "event 5") // most recent last

	// Zero or oversized max returns everything.
	assert.Len(t, p.LogTail(0), 5)
	assert.Len(t, p.LogTail(100), 5)
}

func TestStatusPublisher_LogBounded(t *testing.T) {
	p := NewStatusPublisher()

	for i := 0; i < maxLogEntries+50; i++ {
		p.Log(fmt.Sprintf("event %d", i))
	}

	tail := p.LogTail(0)
	assert.Len(t, tail, maxLogEntries)
	// Oldest entries were evicted first.
	assert.Contains(t, tail[0], "event 50")
	assert.Contains(t, tail[len(tail)-1], fmt.Sprintf("event %d", maxLogEntries+49))
}
