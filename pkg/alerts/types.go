package alerts

import (
	"context"
	"time"
)

// AlertLevel indicates how urgently an alert should be looked at.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"     // Informational feed entry
	AlertWarning  AlertLevel = "warning"  // Out of range, not urgent
	AlertCritical AlertLevel = "critical" // Seek care now
)

// Alert is an outbound copy of an alert notification.
type Alert struct {
	Level          AlertLevel `json:"level"`
	UserID         string     `json:"user_id"`
	NotificationID string     `json:"notification_id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
