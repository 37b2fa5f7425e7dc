package notify

import (
	"context"

	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
)

// WatchUnread keeps the unread-notifications gauge in step with every feed
// the manager hands out. It returns a function that stops the watch.
func WatchUnread(b *bus.Bus, m *Manager) (stop func()) {
	for _, user := range m.Users() {
		m.observe(context.Background(), user)
	}
	return b.Subscribe(bus.TopicNotificationsUpdated, func(ctx context.Context, ev bus.Event) {
		e, ok := ev.Payload.(bus.NotificationsUpdatedEvent)
		if !ok {
			return
		}
		m.observe(ctx, e.UserID)
	})
}

func (m *Manager) observe(ctx context.Context, userID string) {
	store, _ := m.ForUser(ctx, userID)
	metrics.UnreadNotifications.WithLabelValues(userID).Set(float64(store.UnreadCount()))
}
