package bus

// BPReadingEvent is the reading.bp.new payload.
type BPReadingEvent struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id,omitempty"`
	ReadingID string `json:"reading_id,omitempty"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// BPErrorEvent is the reading.bp.error payload.
type BPErrorEvent struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
}

// HeartRateEvent is the reading.hr.new payload.
type HeartRateEvent struct {
	UserID    string `json:"user_id"`
	HeartRate int    `json:"heart_rate"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
}

// NotificationsUpdatedEvent signals that a user's feed changed. Consumers
// re-read the feed; the event carries no entries.
type NotificationsUpdatedEvent struct {
	UserID string `json:"user_id"`
}
