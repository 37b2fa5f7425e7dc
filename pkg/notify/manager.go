package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
)

// Manager hands out per-user feeds backed by a shared persistence layer.
type Manager struct {
	mu      sync.Mutex
	stores  map[string]*Store
	backend storage.NotificationStorage
	bus     *bus.Bus
	clock   clock.Clock
	logger  *slog.Logger
}

// NewManager creates a feed manager. A nil backend keeps every feed in memory.
func NewManager(backend storage.NotificationStorage, b *bus.Bus, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		stores:  make(map[string]*Store),
		backend: backend,
		bus:     b,
		clock:   clk,
		logger:  logger,
	}
}

// ForUser returns the user's feed, loading it from the backend on first use.
// If the load fails the feed starts empty and the result is ResultDegraded.
func (m *Manager) ForUser(ctx context.Context, userID string) (*Store, Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s, ResultOK
	}

	s := NewStore(userID, m.backend, m.bus, m.clock, m.logger)
	res := ResultOK
	if err := s.load(ctx); err != nil {
		m.logger.Warn("notification feed loaded empty",
			"user", userID,
			"error", err,
		)
		res = ResultDegraded
	}
	m.stores[userID] = s
	return s, res
}

// Users returns the ids of every feed opened so far.
func (m *Manager) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]string, 0, len(m.stores))
	for u := range m.stores {
		users = append(users, u)
	}
	return users
}
