package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/bus"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// failingBackend rejects every write and read.
type failingBackend struct{}

var errUnavailable = errors.New("storage unavailable")

func (failingBackend) InsertNotification(context.Context, *model.Notification) error {
	return errUnavailable
}

func (failingBackend) ListNotifications(context.Context, string) ([]model.Notification, error) {
	return nil, errUnavailable
}

func (failingBackend) MarkNotificationRead(context.Context, string, string) error {
	return errUnavailable
}

func (failingBackend) DeleteNotification(context.Context, string, string) error {
	return errUnavailable
}

func (failingBackend) ClearNotifications(context.Context, string) error {
	return errUnavailable
}

func newMemoryStore(t *testing.T) (*notify.Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(start)
	return notify.NewStore("alice", nil, nil, clk, testLogger()), clk
}

func TestStore_AddOrdering(t *testing.T) {
	store, clk := newMemoryStore(t)
	ctx := context.Background()

	a, res := store.Add(ctx, model.KindAlert, "A", "first")
	require.Equal(t, notify.ResultOK, res)
	clk.Advance(time.Second)
	b, _ := store.Add(ctx, model.KindAlert, "B", "second")

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
	assert.False(t, list[0].Read)
	assert.Equal(t, "alice", list[0].UserID)
}

func TestStore_AddSameTimestampKeepsInsertionTiebreak(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	a, _ := store.Add(ctx, model.KindAlert, "A", "")
	b, _ := store.Add(ctx, model.KindInfo, "B", "")
	c, _ := store.Add(ctx, model.KindAlert, "C", "")

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestStore_MarkRead(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	n, _ := store.Add(ctx, model.KindAlert, "A", "")
	assert.Equal(t, 1, store.UnreadCount())

	assert.Equal(t, notify.ResultOK, store.MarkRead(ctx, n.ID))
	assert.Equal(t, 0, store.UnreadCount())
	assert.True(t, store.List()[0].Read)
}

func TestStore_MarkReadUnknownIsNoop(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	store.Add(ctx, model.KindAlert, "A", "")
	before := store.List()

	assert.Equal(t, notify.ResultOK, store.MarkRead(ctx, "does-not-exist"))
	assert.Equal(t, before, store.List())
}

func TestStore_Clear(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	a, _ := store.Add(ctx, model.KindAlert, "A", "")
	b, _ := store.Add(ctx, model.KindAlert, "B", "")

	assert.Equal(t, notify.ResultOK, store.Clear(ctx, a.ID))
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	assert.Equal(t, notify.ResultOK, store.Clear(ctx, "missing"))
	assert.Len(t, store.List(), 1)
}

func TestStore_ClearAllThenFreshIDs(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		n, _ := store.Add(ctx, model.KindAlert, "A", "")
		seen[n.ID] = true
	}

	assert.Equal(t, notify.ResultOK, store.ClearAll(ctx))
	assert.Empty(t, store.List())

	n, _ := store.Add(ctx, model.KindAlert, "A", "")
	assert.False(t, seen[n.ID], "ids must not repeat after ClearAll")
	assert.Equal(t, int64(4), n.Seq)
}

func TestStore_ListReturnsCopy(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	store.Add(ctx, model.KindAlert, "A", "")
	list := store.List()
	list[0].Title = "mutated"

	assert.Equal(t, "A", store.List()[0].Title)
}

func TestStore_CancelledContextFails(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res := store.Add(ctx, model.KindAlert, "A", "")
	assert.Equal(t, notify.ResultFailed, res)
	assert.False(t, res.Applied())
	assert.Empty(t, store.List())
}

func TestStore_DegradedPersistence(t *testing.T) {
	clk := clock.NewFake(start)
	store := notify.NewStore("alice", failingBackend{}, nil, clk, testLogger())
	ctx := context.Background()

	n, res := store.Add(ctx, model.KindAlert, "A", "")
	assert.Equal(t, notify.ResultDegraded, res)
	assert.True(t, res.Applied())
	require.Len(t, store.List(), 1, "in-memory view reflects the mutation")

	assert.Equal(t, notify.ResultDegraded, store.MarkRead(ctx, n.ID))
	assert.True(t, store.List()[0].Read)

	assert.Equal(t, notify.ResultDegraded, store.Clear(ctx, n.ID))
	assert.Empty(t, store.List())

	assert.Equal(t, notify.ResultDegraded, store.ClearAll(ctx))
}

func TestStore_PublishesUpdated(t *testing.T) {
	b := bus.New(testLogger())
	var got []bus.NotificationsUpdatedEvent
	b.Subscribe(bus.TopicNotificationsUpdated, func(_ context.Context, ev bus.Event) {
		got = append(got, ev.Payload.(bus.NotificationsUpdatedEvent))
	})

	store := notify.NewStore("alice", nil, b, clock.NewFake(start), testLogger())
	ctx := context.Background()

	n, _ := store.Add(ctx, model.KindAlert, "A", "")
	store.MarkRead(ctx, n.ID)
	store.Clear(ctx, n.ID)
	store.ClearAll(ctx)

	require.Len(t, got, 4)
	assert.Equal(t, "alice", got[0].UserID)
}

func TestStore_SubscriberCanReadDuringSignal(t *testing.T) {
	b := bus.New(testLogger())
	store := notify.NewStore("alice", nil, b, clock.NewFake(start), testLogger())

	var seen int
	b.Subscribe(bus.TopicNotificationsUpdated, func(_ context.Context, _ bus.Event) {
		seen = len(store.List())
	})

	store.Add(context.Background(), model.KindAlert, "A", "")
	assert.Equal(t, 1, seen)
}

func TestManager_ForUser(t *testing.T) {
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	clk := clock.NewFake(start)

	m := notify.NewManager(db, nil, clk, testLogger())
	alice, res := m.ForUser(ctx, "alice")
	require.Equal(t, notify.ResultOK, res)
	bob, _ := m.ForUser(ctx, "bob")

	first, _ := alice.Add(ctx, model.KindAlert, "A", "")
	clk.Advance(time.Second)
	alice.Add(ctx, model.KindInfo, "B", "")
	alice.MarkRead(ctx, first.ID)

	assert.Len(t, alice.List(), 2)
	assert.Empty(t, bob.List(), "feeds are per user")

	again, _ := m.ForUser(ctx, "alice")
	assert.Same(t, alice, again)
	assert.ElementsMatch(t, []string{"alice", "bob"}, m.Users())

	// A fresh manager reloads the durable feed.
	reloaded := notify.NewManager(db, nil, clk, testLogger())
	store, res := reloaded.ForUser(ctx, "alice")
	require.Equal(t, notify.ResultOK, res)
	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Title)
	assert.True(t, list[1].Read)

	next, _ := store.Add(ctx, model.KindAlert, "C", "")
	assert.Equal(t, int64(3), next.Seq, "sequence resumes after the persisted maximum")
}

func TestManager_ForUserDegradedLoad(t *testing.T) {
	m := notify.NewManager(failingBackend{}, nil, clock.NewFake(start), testLogger())

	store, res := m.ForUser(context.Background(), "alice")
	assert.Equal(t, notify.ResultDegraded, res)
	require.NotNil(t, store)
	assert.Empty(t, store.List())
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "ok", notify.ResultOK.String())
	assert.Equal(t, "degraded", notify.ResultDegraded.String())
	assert.Equal(t, "failed", notify.ResultFailed.String())
}
