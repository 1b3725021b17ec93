package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// maxLogEntries bounds the in-memory log tail.
const maxLogEntries = 200

// Snapshot is the status record published after every state change.
// Each publish replaces the previous snapshot as a whole, so a reader
// never observes a partially updated one.
type Snapshot struct {
	State             State     `json:"state"`
	CurrentAction     string    `json:"current_action"`
	LastOutcome       string    `json:"last_outcome"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	CurrentStake      float64   `json:"current_stake"`
	Balance           float64   `json:"balance"`
	BalanceKnown      bool      `json:"balance_known"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StatusPublisher is the only state the engine worker shares with
// readers: an atomically swapped snapshot plus a bounded, timestamped
// log tail.
type StatusPublisher struct {
	snapshot atomic.Pointer[Snapshot]

	mu   sync.Mutex
	logs []string
}

// NewStatusPublisher creates a publisher seeded with an idle snapshot.
func NewStatusPublisher() *StatusPublisher {
	p := &StatusPublisher{}
	p.Publish(Snapshot{State: StateIdle, CurrentAction: "Idle", LastOutcome: "n/a"})
	return p
}

// Publish replaces the current snapshot.
func (p *StatusPublisher) Publish(s Snapshot) {
	s.UpdatedAt = time.Now()
	p.snapshot.Store(&s)
}

// Snapshot returns the most recently published status.
func (p *StatusPublisher) Snapshot() Snapshot {
	return *p.snapshot.Load()
}

// Log appends a timestamped line to the log tail, evicting the oldest
// line once the bound is reached.
func (p *StatusPublisher) Log(msg string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.logs) == maxLogEntries {
		copy(p.logs, p.logs[1:])
		p.logs[len(p.logs)-1] = line
		return
	}
	p.logs = append(p.logs, line)
}

// LogTail returns up to max log lines, most recent last. A max of zero
// or less returns the whole tail.
func (p *StatusPublisher) LogTail(max int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if max <= 0 || max > len(p.logs) {
		max = len(p.logs)
	}
	tail := make([]string, max)
	copy(tail, p.logs[len(p.logs)-max:])
	return tail
}
