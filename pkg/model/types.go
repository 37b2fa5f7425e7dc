package model

import "time"

// ReadingSource identifies how a blood-pressure reading entered the system.
type ReadingSource string

const (
	SourceManual ReadingSource = "manual"
	SourceDevice ReadingSource = "device"
)

// Valid reports whether s is a known reading source.
func (s ReadingSource) Valid() bool {
	return s == SourceManual || s == SourceDevice
}

// BloodPressureReading is a single persisted BP measurement.
type BloodPressureReading struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"user_id" db:"user_id"`
	DeviceID  string        `json:"device_id,omitempty" db:"device_id"`
	Systolic  int           `json:"systolic" db:"systolic"`
	Diastolic int           `json:"diastolic" db:"diastolic"`
	Timestamp time.Time     `json:"timestamp" db:"timestamp"`
	Date      string        `json:"date" db:"date"`
	Time      string        `json:"time" db:"time"`
	Notes     string        `json:"notes,omitempty" db:"notes"`
	Source    ReadingSource `json:"source" db:"source"`
}

// HeartRateSample is an ephemeral heart-rate value. It is never persisted.
type HeartRateSample struct {
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// NotificationKind separates actionable alerts from informational entries.
type NotificationKind string

const (
	KindAlert NotificationKind = "alert"
	KindInfo  NotificationKind = "info"
)

// Notification is an entry in a user's notification feed.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Kind      NotificationKind `json:"type" db:"kind"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Timestamp time.Time        `json:"timestamp" db:"timestamp"`
	Read      bool             `json:"read" db:"read"`
	Seq       int64            `json:"seq" db:"seq"`
}

// DeviceType classifies a paired wearable.
type DeviceType string

const (
	DeviceSmartwatch  DeviceType = "smartwatch"
	DeviceBPMonitor   DeviceType = "bp_monitor"
	DeviceFitnessBand DeviceType = "fitness_band"
	DeviceOther       DeviceType = "other"
)

// Device is a paired wearable. The alerting core only reads it.
type Device struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      DeviceType `json:"type"`
	Connected bool       `json:"connected"`
}

// ReadingFilter controls which readings a history query returns.
type ReadingFilter struct {
	UserID    string        `json:"user_id"`
	Source    ReadingSource `json:"source,omitempty"`
	StartTime time.Time     `json:"start_time,omitempty"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Limit     int           `json:"limit,omitempty"`
}

// DisplayDate and DisplayTime format a timestamp the way reading history shows it.
func DisplayDate(ts time.Time) string { return ts.Format("2006-01-02") }

func DisplayTime(ts time.Time) string { return ts.Format("15:04") }
