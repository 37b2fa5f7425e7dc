// Package feed simulates a real-time vitals stream that reports a heart-rate
// sample at a fixed interval.
package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// DefaultInterval is the sampling cadence.
const DefaultInterval = 2 * time.Second

// SourceName tags samples produced by the feed.
const SourceName = "vitals-feed"

// HeartRateRecorder accepts heart-rate samples.
type HeartRateRecorder interface {
	RecordHeartRate(ctx context.Context, userID string, bpm int, source string) (*model.HeartRateSample, error)
}

// Feed emits a heart-rate sample for one user every interval.
type Feed struct {
	userID   string
	interval time.Duration
	recorder HeartRateRecorder
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a feed. The seed makes the value sequence reproducible.
func New(userID string, interval time.Duration, recorder HeartRateRecorder, seed uint64, logger *slog.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Feed{
		userID:   userID,
		interval: interval,
		recorder: recorder,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Run emits samples until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("vitals feed started", "user", f.userID, "interval", f.interval)
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("vitals feed stopped", "user", f.userID)
			return
		case <-ticker.C:
			f.Tick(ctx)
		}
	}
}

// Tick emits a single sample in the 60-99 bpm range.
func (f *Feed) Tick(ctx context.Context) int {
	f.mu.Lock()
	bpm := 60 + f.rng.IntN(40)
	f.mu.Unlock()

	if _, err := f.recorder.RecordHeartRate(ctx, f.userID, bpm, SourceName); err != nil {
		f.logger.Warn("feed sample rejected", "user", f.userID, "bpm", bpm, "error", err)
	}
	return bpm
}
