package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
)

// Store is one user's notification feed. The in-memory slice is the source of
// truth for reads; the backend is written through on every mutation and its
// failures only degrade durability.
type Store struct {
	mu      sync.Mutex
	userID  string
	items   []model.Notification // newest first
	seq     int64
	backend storage.NotificationStorage
	bus     *bus.Bus
	clock   clock.Clock
	logger  *slog.Logger
}

// NewStore creates an empty feed for userID. backend and b may be nil for a
// memory-only feed without change signals.
func NewStore(userID string, backend storage.NotificationStorage, b *bus.Bus, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		userID:  userID,
		backend: backend,
		bus:     b,
		clock:   clk,
		logger:  logger,
	}
}

// load seeds the feed from the backend.
func (s *Store) load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	items, err := s.backend.ListNotifications(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	for _, n := range items {
		if n.Seq > s.seq {
			s.seq = n.Seq
		}
	}
	sortFeed(s.items)
	return nil
}

// Add creates a new unread entry. Every call creates a distinct entry.
func (s *Store) Add(ctx context.Context, kind model.NotificationKind, title, message string) (model.Notification, Result) {
	if err := ctx.Err(); err != nil {
		return model.Notification{}, ResultFailed
	}

	s.mu.Lock()
	s.seq++
	n := model.Notification{
		ID:        fmt.Sprintf("n_%d_%s", s.seq, uuid.NewString()[:8]),
		UserID:    s.userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: s.clock.Now(),
		Seq:       s.seq,
	}
	s.items = append([]model.Notification{n}, s.items...)
	sortFeed(s.items)

	res := s.persist(ctx, "add", func(ctx context.Context) error {
		return s.backend.InsertNotification(ctx, &n)
	})
	s.mu.Unlock()

	s.signal(ctx)
	return n, res
}

// MarkRead flags the entry as read. Unknown ids are a successful no-op.
func (s *Store) MarkRead(ctx context.Context, id string) Result {
	if err := ctx.Err(); err != nil {
		return ResultFailed
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || s.items[idx].Read {
		s.mu.Unlock()
		return ResultOK
	}
	s.items[idx].Read = true
	res := s.persist(ctx, "mark_read", func(ctx context.Context) error {
		return s.backend.MarkNotificationRead(ctx, s.userID, id)
	})
	s.mu.Unlock()

	s.signal(ctx)
	return res
}

// Clear removes one entry. Unknown ids are a successful no-op.
func (s *Store) Clear(ctx context.Context, id string) Result {
	if err := ctx.Err(); err != nil {
		return ResultFailed
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ResultOK
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	res := s.persist(ctx, "clear", func(ctx context.Context) error {
		return s.backend.DeleteNotification(ctx, s.userID, id)
	})
	s.mu.Unlock()

	s.signal(ctx)
	return res
}

// ClearAll empties the feed. The id sequence keeps counting.
func (s *Store) ClearAll(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return ResultFailed
	}

	s.mu.Lock()
	s.items = nil
	res := s.persist(ctx, "clear_all", func(ctx context.Context) error {
		return s.backend.ClearNotifications(ctx, s.userID)
	})
	s.mu.Unlock()

	s.signal(ctx)
	return res
}

// List returns a copy of the feed, newest first.
func (s *Store) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the number of unread entries.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// UserID returns the owner of the feed.
func (s *Store) UserID() string { return s.userID }

// persist runs write against the backend. Callers must hold s.mu.
func (s *Store) persist(ctx context.Context, op string, write func(context.Context) error) Result {
	if s.backend == nil {
		return ResultOK
	}
	if err := write(ctx); err != nil {
		metrics.PersistenceDegraded.WithLabelValues(op).Inc()
		s.logger.Warn("notification persistence degraded",
			"user", s.userID,
			"op", op,
			"error", err,
		)
		return ResultDegraded
	}
	return ResultOK
}

func (s *Store) signal(ctx context.Context) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, bus.TopicNotificationsUpdated, bus.NotificationsUpdatedEvent{UserID: s.userID})
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// sortFeed orders by timestamp descending, newest insertion first on ties.
func sortFeed(items []model.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Seq > items[j].Seq
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}
