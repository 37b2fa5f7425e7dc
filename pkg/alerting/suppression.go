package alerting

import (
	"sync"
	"time"
)

// DefaultSuppressionWindow is the minimum interval between two alerts that
// share a title.
const DefaultSuppressionWindow = 30 * time.Second

// SuppressionGate rate-limits alerts by title. Titles are independent.
type SuppressionGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSent map[string]time.Time
}

// NewSuppressionGate creates a gate. A non-positive cooldown uses
// DefaultSuppressionWindow.
func NewSuppressionGate(cooldown time.Duration) *SuppressionGate {
	if cooldown <= 0 {
		cooldown = DefaultSuppressionWindow
	}
	return &SuppressionGate{
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}
}

// ShouldSuppress reports whether title fired less than one cooldown before now.
func (g *SuppressionGate) ShouldSuppress(title string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suppressed(title, now)
}

// RecordFired marks title as fired at now.
func (g *SuppressionGate) RecordFired(title string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSent[title] = now
}

// Allow checks and records in one step. It returns false when title is
// still cooling down.
func (g *SuppressionGate) Allow(title string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suppressed(title, now) {
		return false
	}
	g.lastSent[title] = now
	return true
}

// Reset forgets every recorded title.
func (g *SuppressionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSent = make(map[string]time.Time)
}

func (g *SuppressionGate) suppressed(title string, now time.Time) bool {
	last, ok := g.lastSent[title]
	return ok && now.Sub(last) < g.cooldown
}
