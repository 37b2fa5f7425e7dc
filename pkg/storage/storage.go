package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ReadingStorage persists blood-pressure readings keyed by user.
type ReadingStorage interface {
	// SaveReading persists a single reading.
	SaveReading(ctx context.Context, reading *model.BloodPressureReading) error

	// ListReadings returns readings matching the filter, newest first.
	ListReadings(ctx context.Context, filter model.ReadingFilter) ([]model.BloodPressureReading, error)

	// DeleteReading removes one of the user's readings.
	DeleteReading(ctx context.Context, userID, id string) error
}

// NotificationStorage persists each user's notification feed.
type NotificationStorage interface {
	// InsertNotification persists a new feed entry.
	InsertNotification(ctx context.Context, n *model.Notification) error

	// ListNotifications returns the user's feed, newest first.
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)

	// MarkNotificationRead flips the read flag. Missing ids are not an error.
	MarkNotificationRead(ctx context.Context, userID, id string) error

	// DeleteNotification removes one entry. Missing ids are not an error.
	DeleteNotification(ctx context.Context, userID, id string) error

	// ClearNotifications removes every entry of the user's feed.
	ClearNotifications(ctx context.Context, userID string) error
}

// Storage is the full persistence layer.
type Storage interface {
	ReadingStorage
	NotificationStorage

	// Close releases resources.
	Close() error
}
