package readings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
)

// ErrInvalidReading is returned for values outside the accepted ranges.
var ErrInvalidReading = errors.New("invalid reading")

// Accepted input ranges.
const (
	MinSystolic  = 50
	MaxSystolic  = 300
	MinDiastolic = 30
	MaxDiastolic = 200
	MinHeartRate = 20
	MaxHeartRate = 250
)

// DefaultStatsWindow is the number of recent readings Stats averages.
const DefaultStatsWindow = 30

// Entry is a BP reading as submitted by a producer.
type Entry struct {
	UserID    string
	DeviceID  string
	Systolic  int
	Diastolic int
	Notes     string
	Source    model.ReadingSource
	Timestamp time.Time
}

// Service is the producer boundary for readings: it validates, persists and
// publishes them onto the bus.
type Service struct {
	storage storage.ReadingStorage
	bus     *bus.Bus
	clock   clock.Clock
	logger  *slog.Logger
}

// NewService creates a reading service.
func NewService(store storage.ReadingStorage, b *bus.Bus, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		bus:     b,
		clock:   clk,
		logger:  logger,
	}
}

// ValidateReading checks the BP ranges.
func ValidateReading(systolic, diastolic int) error {
	if systolic < MinSystolic || systolic > MaxSystolic {
		return fmt.Errorf("%w: systolic %d outside %d-%d", ErrInvalidReading, systolic, MinSystolic, MaxSystolic)
	}
	if diastolic < MinDiastolic || diastolic > MaxDiastolic {
		return fmt.Errorf("%w: diastolic %d outside %d-%d", ErrInvalidReading, diastolic, MinDiastolic, MaxDiastolic)
	}
	if systolic <= diastolic {
		return fmt.Errorf("%w: systolic %d must be greater than diastolic %d", ErrInvalidReading, systolic, diastolic)
	}
	return nil
}

// ValidateHeartRate checks the heart-rate range.
func ValidateHeartRate(bpm int) error {
	if bpm < MinHeartRate || bpm > MaxHeartRate {
		return fmt.Errorf("%w: heart rate %d outside %d-%d", ErrInvalidReading, bpm, MinHeartRate, MaxHeartRate)
	}
	return nil
}

// Record validates and persists a BP reading, then publishes it on
// reading.bp.new. A persistence failure is returned, but the reading is still
// published so alerting is not lost with it.
func (s *Service) Record(ctx context.Context, e Entry) (*model.BloodPressureReading, error) {
	if err := ValidateReading(e.Systolic, e.Diastolic); err != nil {
		metrics.ReadingsRejected.WithLabelValues("bp").Inc()
		return nil, err
	}
	if e.UserID == "" {
		metrics.ReadingsRejected.WithLabelValues("bp").Inc()
		return nil, fmt.Errorf("%w: user is required", ErrInvalidReading)
	}

	source := e.Source
	if source == "" {
		source = model.SourceManual
	}
	if !source.Valid() {
		metrics.ReadingsRejected.WithLabelValues("bp").Inc()
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidReading, source)
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now()
	}

	r := &model.BloodPressureReading{
		ID:        uuid.New().String(),
		UserID:    e.UserID,
		DeviceID:  e.DeviceID,
		Systolic:  e.Systolic,
		Diastolic: e.Diastolic,
		Timestamp: ts,
		Date:      model.DisplayDate(ts),
		Time:      model.DisplayTime(ts),
		Notes:     e.Notes,
		Source:    source,
	}

	var storeErr error
	if err := s.storage.SaveReading(ctx, r); err != nil {
		s.logger.Error("persist reading failed", "user", r.UserID, "error", err)
		storeErr = fmt.Errorf("store reading: %w", err)
	} else {
		s.logger.Info("reading recorded",
			"user", r.UserID,
			"systolic", r.Systolic,
			"diastolic", r.Diastolic,
			"source", r.Source,
			"device", r.DeviceID,
		)
	}

	s.bus.Publish(ctx, bus.TopicBPReading, bus.BPReadingEvent{
		UserID:    r.UserID,
		DeviceID:  r.DeviceID,
		ReadingID: r.ID,
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Timestamp: r.Timestamp.Format(time.RFC3339),
		Source:    string(r.Source),
	})

	return r, storeErr
}

// RecordHeartRate validates a heart-rate sample and publishes it on
// reading.hr.new. Samples are not persisted.
func (s *Service) RecordHeartRate(ctx context.Context, userID string, bpm int, source string) (*model.HeartRateSample, error) {
	if err := ValidateHeartRate(bpm); err != nil {
		metrics.ReadingsRejected.WithLabelValues("hr").Inc()
		return nil, err
	}

	sample := &model.HeartRateSample{
		UserID:    userID,
		Value:     bpm,
		Timestamp: s.clock.Now(),
		Source:    source,
	}
	s.bus.Publish(ctx, bus.TopicHeartRate, bus.HeartRateEvent{
		UserID:    sample.UserID,
		HeartRate: sample.Value,
		Timestamp: sample.Timestamp.Format(time.RFC3339),
		Source:    sample.Source,
	})
	return sample, nil
}

// History returns the user's readings, newest first.
func (s *Service) History(ctx context.Context, filter model.ReadingFilter) ([]model.BloodPressureReading, error) {
	readings, err := s.storage.ListReadings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return readings, nil
}

// Delete removes one of the user's readings.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.storage.DeleteReading(ctx, userID, id); err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	s.logger.Info("reading deleted", "user", userID, "id", id)
	return nil
}

// Latest returns the user's most recent reading, or storage.ErrNotFound when
// there is none.
func (s *Service) Latest(ctx context.Context, userID string) (*model.BloodPressureReading, error) {
	list, err := s.storage.ListReadings(ctx, model.ReadingFilter{UserID: userID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("latest reading: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("latest reading for %q: %w", userID, storage.ErrNotFound)
	}
	return &list[0], nil
}

// Stats summarises a user's history.
type Stats struct {
	Latest       model.BloodPressureReading `json:"latest"`
	Status       classifier.Status          `json:"status"`
	AvgSystolic  int                        `json:"avg_systolic"`
	AvgDiastolic int                        `json:"avg_diastolic"`
	Window       int                        `json:"window"`
	Count        int                        `json:"count"`
}

// Stats returns the latest reading with its classification, the rounded
// average of the newest window readings and the total number of readings.
// A non-positive window uses DefaultStatsWindow. Users without readings get
// storage.ErrNotFound.
func (s *Service) Stats(ctx context.Context, userID string, window int) (*Stats, error) {
	if window <= 0 {
		window = DefaultStatsWindow
	}

	list, err := s.storage.ListReadings(ctx, model.ReadingFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("reading stats for %q: %w", userID, storage.ErrNotFound)
	}

	recent := list[:min(window, len(list))]
	var sumSys, sumDia int
	for _, r := range recent {
		sumSys += r.Systolic
		sumDia += r.Diastolic
	}

	latest := list[0]
	return &Stats{
		Latest:       latest,
		Status:       classifier.Classify(latest.Systolic, latest.Diastolic),
		AvgSystolic:  roundedMean(sumSys, len(recent)),
		AvgDiastolic: roundedMean(sumDia, len(recent)),
		Window:       len(recent),
		Count:        len(list),
	}, nil
}

func roundedMean(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
