package wearable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/devices"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/readings"
)

// DefaultPollInterval is the sync cadence per device.
const DefaultPollInterval = time.Minute

var (
	ErrAlreadyPolling = errors.New("device is already polling")
	ErrNotPolling     = errors.New("device is not polling")
	ErrPollInFlight   = errors.New("poll already in flight")
)

// Recorder persists and publishes a fetched reading.
type Recorder interface {
	Record(ctx context.Context, e readings.Entry) (*model.BloodPressureReading, error)
}

// StreamCanceler drops pending alert evaluations of a stream.
type StreamCanceler interface {
	CancelStream(userID, streamID string)
}

type session struct {
	userID string
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller periodically syncs BP readings from paired devices. At most one poll
// per device is in flight at any time.
type Poller struct {
	registry *devices.Registry
	source   Source
	recorder Recorder
	bus      *bus.Bus
	canceler StreamCanceler
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	inFlight map[string]bool
}

// NewPoller creates a poller. canceler may be nil.
func NewPoller(registry *devices.Registry, source Source, recorder Recorder, b *bus.Bus, canceler StreamCanceler, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		registry: registry,
		source:   source,
		recorder: recorder,
		bus:      b,
		canceler: canceler,
		interval: interval,
		logger:   logger,
		sessions: make(map[string]*session),
		inFlight: make(map[string]bool),
	}
}

// Start begins polling deviceID on behalf of userID.
func (p *Poller) Start(ctx context.Context, userID, deviceID string) error {
	device, err := p.registry.Get(deviceID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if _, ok := p.sessions[deviceID]; ok {
		p.mu.Unlock()
		return fmt.Errorf("%s: %w", deviceID, ErrAlreadyPolling)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s := &session{userID: userID, cancel: cancel, done: make(chan struct{})}
	p.sessions[deviceID] = s
	p.mu.Unlock()

	if err := p.registry.SetConnected(deviceID, true); err != nil {
		p.logger.Warn("mark device connected", "device", deviceID, "error", err)
	}

	go p.loop(loopCtx, s, device)

	p.logger.Info("polling started", "device", deviceID, "name", device.Name, "user", userID, "interval", p.interval)
	return nil
}

func (p *Poller) loop(ctx context.Context, s *session, device model.Device) {
	defer close(s.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx, s.userID, device.ID); err != nil && !errors.Is(err, ErrPollInFlight) {
				p.logger.Debug("poll failed", "device", device.ID, "error", err)
			}
		}
	}
}

// PollOnce fetches one measurement from deviceID. Failures are published on
// reading.bp.error and returned; the caller decides whether to retry.
func (p *Poller) PollOnce(ctx context.Context, userID, deviceID string) error {
	device, err := p.registry.Get(deviceID)
	if err != nil {
		return err
	}

	if !p.acquire(deviceID) {
		return fmt.Errorf("%s: %w", deviceID, ErrPollInFlight)
	}
	defer p.release(deviceID)

	m, err := p.source.Fetch(ctx, device)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.DeviceErrors.WithLabelValues(deviceID).Inc()
		p.logger.Warn("device fetch failed", "device", deviceID, "error", err)
		p.bus.Publish(ctx, bus.TopicBPError, bus.BPErrorEvent{
			UserID:   userID,
			DeviceID: deviceID,
			Message:  err.Error(),
		})
		return fmt.Errorf("fetch from %s: %w", deviceID, err)
	}

	_, err = p.recorder.Record(ctx, readings.Entry{
		UserID:    userID,
		DeviceID:  deviceID,
		Systolic:  m.Systolic,
		Diastolic: m.Diastolic,
		Notes:     "Auto-synced from " + device.Name,
		Source:    model.SourceDevice,
		Timestamp: m.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record reading from %s: %w", deviceID, err)
	}
	return nil
}

// Stop ends polling of deviceID and drops its pending alert evaluation.
func (p *Poller) Stop(deviceID string) error {
	p.mu.Lock()
	s, ok := p.sessions[deviceID]
	if ok {
		delete(p.sessions, deviceID)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrNotPolling)
	}

	s.cancel()
	<-s.done

	if p.canceler != nil {
		p.canceler.CancelStream(s.userID, deviceID)
	}
	if err := p.registry.SetConnected(deviceID, false); err != nil {
		p.logger.Warn("mark device disconnected", "device", deviceID, "error", err)
	}

	p.logger.Info("polling stopped", "device", deviceID, "user", s.userID)
	return nil
}

// StopAll ends every polling session.
func (p *Poller) StopAll() {
	for _, id := range p.Active() {
		_ = p.Stop(id)
	}
}

// IsPolling reports whether deviceID has an active session.
func (p *Poller) IsPolling(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[deviceID]
	return ok
}

// Active returns the ids of devices being polled.
func (p *Poller) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (p *Poller) acquire(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[deviceID] {
		return false
	}
	p.inFlight[deviceID] = true
	return true
}

func (p *Poller) release(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, deviceID)
}
