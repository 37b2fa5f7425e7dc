package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/readings"
)

// ErrUnknownTopic is returned for topics outside <prefix>/<user>/{bp,hr}.
var ErrUnknownTopic = errors.New("unknown topic")

// Recorder is the producer boundary the handler feeds.
type Recorder interface {
	Record(ctx context.Context, e readings.Entry) (*model.BloodPressureReading, error)
	RecordHeartRate(ctx context.Context, userID string, bpm int, source string) (*model.HeartRateSample, error)
}

type bpMessage struct {
	DeviceID  string `json:"device_id"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Timestamp string `json:"timestamp"`
}

type hrMessage struct {
	HeartRate int `json:"heart_rate"`
}

// Handler decodes device messages and hands them to the recorder.
type Handler struct {
	recorder Recorder
	prefix   string
	logger   *slog.Logger
}

// NewHandler creates a message handler for topics under prefix.
func NewHandler(recorder Recorder, prefix string, logger *slog.Logger) *Handler {
	return &Handler{
		recorder: recorder,
		prefix:   strings.TrimSuffix(prefix, "/"),
		logger:   logger,
	}
}

// Handle processes one message. Topic layout: <prefix>/<user>/bp or
// <prefix>/<user>/hr.
func (h *Handler) Handle(ctx context.Context, topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, h.prefix+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	user, kind, ok := strings.Cut(rest, "/")
	if !ok || user == "" {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	switch kind {
	case "bp":
		var msg bpMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode bp message: %w", err)
		}
		if msg.DeviceID == "" {
			return fmt.Errorf("%w: device_id is required", readings.ErrInvalidReading)
		}
		ts, err := parseTimestamp(msg.Timestamp)
		if err != nil {
			return err
		}
		_, err = h.recorder.Record(ctx, readings.Entry{
			UserID:    user,
			DeviceID:  msg.DeviceID,
			Systolic:  msg.Systolic,
			Diastolic: msg.Diastolic,
			Notes:     "Received over MQTT",
			Source:    model.SourceDevice,
			Timestamp: ts,
		})
		return err

	case "hr":
		var msg hrMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode hr message: %w", err)
		}
		_, err := h.recorder.RecordHeartRate(ctx, user, msg.HeartRate, "mqtt")
		return err

	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

// Topics returns the subscription filters for the prefix.
func (h *Handler) Topics() []string {
	return []string{h.prefix + "/+/bp", h.prefix + "/+/hr"}
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}
