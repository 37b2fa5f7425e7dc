package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/internal/metrics"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
)

// TitleDeviceError is the title of notifications raised by reading.bp.error.
const TitleDeviceError = "Device Error"

// Options tunes the pipeline.
type Options struct {
	DebounceWindow    time.Duration
	SuppressionWindow time.Duration
	// SuppressBP applies the suppression cool-down to BP alerts as well as
	// heart-rate alerts.
	SuppressBP bool
}

// DefaultOptions returns the standard windows with BP suppression on.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:    DefaultDebounceWindow,
		SuppressionWindow: DefaultSuppressionWindow,
		SuppressBP:        true,
	}
}

// Pipeline turns reading events into notifications:
// bus -> debouncer (BP only) -> classifier -> suppression gate -> feed -> notifiers.
type Pipeline struct {
	bus       *bus.Bus
	feeds     *notify.Manager
	notifiers []alerts.Notifier
	clock     clock.Clock
	opts      Options
	logger    *slog.Logger

	debouncer *Debouncer

	mu     sync.Mutex
	gates  map[string]*SuppressionGate
	unsubs []func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPipeline creates a pipeline. Call Start to subscribe it to the bus.
func NewPipeline(b *bus.Bus, feeds *notify.Manager, notifiers []alerts.Notifier, clk clock.Clock, opts Options, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		bus:       b,
		feeds:     feeds,
		notifiers: notifiers,
		clock:     clk,
		opts:      opts,
		logger:    logger,
		gates:     make(map[string]*SuppressionGate),
	}
	p.debouncer = NewDebouncer(opts.DebounceWindow, clk, p.evaluateBP)
	return p
}

// Start subscribes to the reading topics. Debounced evaluations run with a
// context derived from ctx.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.unsubs = append(p.unsubs,
		p.bus.Subscribe(bus.TopicBPReading, p.handleBPReading),
		p.bus.Subscribe(bus.TopicBPError, p.handleBPError),
		p.bus.Subscribe(bus.TopicHeartRate, p.handleHeartRate),
	)
}

// Close ends the session: it unsubscribes, cancels pending evaluations and
// forgets suppression bookkeeping.
func (p *Pipeline) Close() {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	cancel := p.cancel
	gates := p.gates
	p.gates = make(map[string]*SuppressionGate)
	p.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	p.debouncer.Close()
	for _, g := range gates {
		g.Reset()
	}
	if cancel != nil {
		cancel()
	}
}

// Flush evaluates pending BP readings now instead of after the quiet period.
func (p *Pipeline) Flush() {
	p.debouncer.Flush()
}

// CancelStream drops the pending BP reading of a stream, e.g. when a device
// stops polling.
func (p *Pipeline) CancelStream(userID, streamID string) {
	p.debouncer.Cancel(StreamKey(userID, streamID))
}

// StreamKey identifies a reading stream: one per device, or one per manual
// source when no device is involved.
func StreamKey(userID, streamID string) string {
	return userID + "/" + streamID
}

func (p *Pipeline) handleBPReading(_ context.Context, ev bus.Event) {
	e, ok := ev.Payload.(bus.BPReadingEvent)
	if !ok {
		p.logger.Error("unexpected payload", "topic", string(ev.Topic), "type", fmt.Sprintf("%T", ev.Payload))
		return
	}
	metrics.ReadingsReceived.WithLabelValues("bp").Inc()

	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		ts = p.clock.Now()
	}
	r := model.BloodPressureReading{
		ID:        e.ReadingID,
		UserID:    e.UserID,
		DeviceID:  e.DeviceID,
		Systolic:  e.Systolic,
		Diastolic: e.Diastolic,
		Timestamp: ts,
		Source:    model.ReadingSource(e.Source),
	}

	stream := e.DeviceID
	if stream == "" {
		stream = e.Source
	}
	p.debouncer.OnReading(StreamKey(e.UserID, stream), r)
}

func (p *Pipeline) evaluateBP(_ string, r model.BloodPressureReading) {
	metrics.DebounceEvaluations.Inc()

	alert, ok := classifier.AlertFor(r.Systolic, r.Diastolic)
	if !ok {
		return
	}

	if p.opts.SuppressBP && !p.gate(r.UserID).Allow(alert.Title, p.clock.Now()) {
		metrics.AlertsSuppressed.WithLabelValues(alert.Title).Inc()
		p.logger.Debug("bp alert suppressed", "user", r.UserID, "title", alert.Title)
		return
	}

	level := alerts.AlertWarning
	if classifier.Classify(r.Systolic, r.Diastolic).Category.Rank() >= classifier.Stage2.Rank() {
		level = alerts.AlertCritical
	}
	p.emit(p.sessionContext(), r.UserID, alert.Title, alert.Message, level)
}

func (p *Pipeline) handleHeartRate(ctx context.Context, ev bus.Event) {
	e, ok := ev.Payload.(bus.HeartRateEvent)
	if !ok {
		p.logger.Error("unexpected payload", "topic", string(ev.Topic), "type", fmt.Sprintf("%T", ev.Payload))
		return
	}
	metrics.ReadingsReceived.WithLabelValues("hr").Inc()

	gate := p.gate(e.UserID)
	for _, a := range classifier.ClassifyHeartRate(e.HeartRate, e.Source) {
		if !gate.Allow(a.Title, p.clock.Now()) {
			metrics.AlertsSuppressed.WithLabelValues(a.Title).Inc()
			continue
		}
		level := alerts.AlertWarning
		if a.Kind == classifier.HeartRateIrregular {
			level = alerts.AlertCritical
		}
		p.emit(ctx, e.UserID, a.Title, a.Message, level)
	}
}

func (p *Pipeline) handleBPError(ctx context.Context, ev bus.Event) {
	e, ok := ev.Payload.(bus.BPErrorEvent)
	if !ok {
		p.logger.Error("unexpected payload", "topic", string(ev.Topic), "type", fmt.Sprintf("%T", ev.Payload))
		return
	}

	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	p.emit(ctx, e.UserID, TitleDeviceError, fmt.Sprintf("Device %s error: %s", e.DeviceID, msg), alerts.AlertWarning)
}

// emit appends an alert to the user's feed and fans it out to the notifiers.
// Delivery is best-effort.
func (p *Pipeline) emit(ctx context.Context, userID, title, message string, level alerts.AlertLevel) {
	feed, _ := p.feeds.ForUser(ctx, userID)
	n, res := feed.Add(ctx, model.KindAlert, title, message)
	if !res.Applied() {
		p.logger.Error("alert not recorded", "user", userID, "title", title, "result", res.String())
		return
	}
	metrics.AlertsFired.WithLabelValues(title).Inc()

	p.logger.Info("alert raised",
		"user", userID,
		"title", title,
		"level", level,
		"result", res.String(),
	)

	alert := alerts.Alert{
		Level:          level,
		UserID:         userID,
		NotificationID: n.ID,
		Title:          title,
		Message:        message,
		Timestamp:      n.Timestamp,
	}
	for _, notifier := range p.notifiers {
		if err := notifier.Send(ctx, alert); err != nil {
			metrics.NotifierErrors.WithLabelValues(notifier.Name()).Inc()
			p.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"title", title,
				"error", err,
			)
		}
	}
}

func (p *Pipeline) gate(userID string) *SuppressionGate {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.gates[userID]
	if !ok {
		g = NewSuppressionGate(p.opts.SuppressionWindow)
		p.gates[userID] = g
	}
	return g
}

func (p *Pipeline) sessionContext() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}
