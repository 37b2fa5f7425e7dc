package alerting_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerting"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []alerts.Alert
	err  error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Send(_ context.Context, a alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return n.err
}

type harness struct {
	bus      *bus.Bus
	clock    *clock.Fake
	feeds    *notify.Manager
	pipeline *alerting.Pipeline
	notifier *recordingNotifier
}

func newHarness(t *testing.T, opts alerting.Options) *harness {
	t.Helper()
	logger := testLogger()
	b := bus.New(logger)
	clk := clock.NewFake(t0)
	feeds := notify.NewManager(nil, b, clk, logger)
	rec := &recordingNotifier{}

	p := alerting.NewPipeline(b, feeds, []alerts.Notifier{rec}, clk, opts, logger)
	p.Start(context.Background())
	t.Cleanup(p.Close)

	return &harness{bus: b, clock: clk, feeds: feeds, pipeline: p, notifier: rec}
}

func (h *harness) feed(t *testing.T, user string) []model.Notification {
	t.Helper()
	store, _ := h.feeds.ForUser(context.Background(), user)
	return store.List()
}

func (h *harness) publishBP(user, device string, s, d int) {
	h.bus.Publish(context.Background(), bus.TopicBPReading, bus.BPReadingEvent{
		UserID:    user,
		DeviceID:  device,
		Systolic:  s,
		Diastolic: d,
		Timestamp: h.clock.Now().Format(time.RFC3339),
		Source:    string(model.SourceDevice),
	})
}

func (h *harness) publishHR(user string, bpm int) {
	h.bus.Publish(context.Background(), bus.TopicHeartRate, bus.HeartRateEvent{
		UserID:    user,
		HeartRate: bpm,
		Timestamp: h.clock.Now().Format(time.RFC3339),
		Source:    "feed",
	})
}

func TestPipeline_BPBurstRaisesOneAlertForLastReading(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "watch", 185, 95)
	h.clock.Advance(200 * time.Millisecond)
	h.publishBP("alice", "watch", 150, 92)
	h.clock.Advance(200 * time.Millisecond)
	h.publishBP("alice", "watch", 125, 70)

	assert.Empty(t, h.feed(t, "alice"))

	h.clock.Advance(1200 * time.Millisecond)
	list := h.feed(t, "alice")
	require.Len(t, list, 1)
	assert.Equal(t, "Elevated Blood Pressure", list[0].Title)
	assert.Equal(t, "125/70 mmHg, Elevated", list[0].Message)
	assert.Equal(t, model.KindAlert, list[0].Kind)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, alerts.AlertWarning, h.notifier.sent[0].Level)
	assert.Equal(t, list[0].ID, h.notifier.sent[0].NotificationID)
}

func TestPipeline_NormalReadingRaisesNothing(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "watch", 119, 79)
	h.clock.Advance(2 * time.Second)

	assert.Empty(t, h.feed(t, "alice"))
	assert.Empty(t, h.notifier.sent)
}

func TestPipeline_CrisisIsCritical(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "", 180, 70)
	h.clock.Advance(2 * time.Second)

	list := h.feed(t, "alice")
	require.Len(t, list, 1)
	assert.Equal(t, "Hypertensive Crisis", list[0].Title)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, alerts.AlertCritical, h.notifier.sent[0].Level)
}

func TestPipeline_BPSuppression(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "watch", 150, 95)
	h.clock.Advance(2 * time.Second)
	h.publishBP("alice", "watch", 150, 95)
	h.clock.Advance(2 * time.Second)

	assert.Len(t, h.feed(t, "alice"), 1)

	opts := alerting.DefaultOptions()
	opts.SuppressBP = false
	h2 := newHarness(t, opts)
	h2.publishBP("alice", "watch", 150, 95)
	h2.clock.Advance(2 * time.Second)
	h2.publishBP("alice", "watch", 150, 95)
	h2.clock.Advance(2 * time.Second)

	assert.Len(t, h2.feed(t, "alice"), 2)
}

func TestPipeline_HeartRateSuppression(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishHR("alice", 130)
	h.clock.Advance(10 * time.Second)
	h.publishHR("alice", 135)

	list := h.feed(t, "alice")
	require.Len(t, list, 1)
	assert.Equal(t, "High Heart Rate", list[0].Title)
	assert.Equal(t, "Heart rate 130 bpm (feed)", list[0].Message)

	h.clock.Advance(21 * time.Second)
	h.publishHR("alice", 140)
	assert.Len(t, h.feed(t, "alice"), 2)
}

func TestPipeline_HeartRateBothConditions(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishHR("alice", 190)

	list := h.feed(t, "alice")
	require.Len(t, list, 2)
	titles := []string{list[0].Title, list[1].Title}
	assert.ElementsMatch(t, []string{"High Heart Rate", "Irregular Heartbeat"}, titles)

	h.clock.Advance(time.Second)
	h.publishHR("alice", 35)
	assert.Len(t, h.feed(t, "alice"), 2, "irregular is still cooling down")
}

func TestPipeline_HeartRateNormalRaisesNothing(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishHR("alice", 72)
	assert.Empty(t, h.feed(t, "alice"))
}

func TestPipeline_UsersHaveSeparateGates(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishHR("alice", 130)
	h.publishHR("bob", 130)

	assert.Len(t, h.feed(t, "alice"), 1)
	assert.Len(t, h.feed(t, "bob"), 1)
}

func TestPipeline_DeviceError(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.bus.Publish(context.Background(), bus.TopicBPError, bus.BPErrorEvent{
		UserID: "alice", DeviceID: "dev-1", Message: "Connection timeout",
	})
	h.bus.Publish(context.Background(), bus.TopicBPError, bus.BPErrorEvent{
		UserID: "alice", DeviceID: "dev-1",
	})

	list := h.feed(t, "alice")
	require.Len(t, list, 2, "device errors are not suppressed")
	assert.Equal(t, alerting.TitleDeviceError, list[1].Title)
	assert.Equal(t, "Device dev-1 error: Connection timeout", list[1].Message)
	assert.Equal(t, "Device dev-1 error: Unknown error", list[0].Message)
}

func TestPipeline_CancelStream(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "watch", 150, 95)
	h.pipeline.CancelStream("alice", "watch")
	h.clock.Advance(5 * time.Second)

	assert.Empty(t, h.feed(t, "alice"))
}

func TestPipeline_CloseStopsEverything(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "watch", 150, 95)
	h.pipeline.Close()
	h.clock.Advance(5 * time.Second)
	h.publishHR("alice", 130)

	assert.Empty(t, h.feed(t, "alice"))
	assert.Equal(t, 0, h.bus.Subscribers(bus.TopicBPReading))
}

func TestPipeline_Flush(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())

	h.publishBP("alice", "", 135, 85)
	h.pipeline.Flush()

	list := h.feed(t, "alice")
	require.Len(t, list, 1)
	assert.Equal(t, "Hypertension Stage 1", list[0].Title)
}

func TestPipeline_NotifierErrorDoesNotBlockFeed(t *testing.T) {
	h := newHarness(t, alerting.DefaultOptions())
	h.notifier.err = errors.New("slack down")

	h.publishHR("alice", 130)
	assert.Len(t, h.feed(t, "alice"), 1)
	assert.Len(t, h.notifier.sent, 1)
}
