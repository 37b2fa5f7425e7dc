package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SaveReading(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	reading := &model.BloodPressureReading{
		UserID:    "alice",
		Systolic:  125,
		Diastolic: 82,
		Notes:     "after coffee",
		Source:    model.SourceManual,
	}

	err := db.SaveReading(ctx, reading)
	require.NoError(t, err)
	assert.NotEmpty(t, reading.ID)
	assert.False(t, reading.Timestamp.IsZero())
	assert.NotEmpty(t, reading.Date)
	assert.NotEmpty(t, reading.Time)
}

func TestSQLite_SaveReading_InvalidSource(t *testing.T) {
	db := newTestDB(t)

	err := db.SaveReading(context.Background(), &model.BloodPressureReading{
		UserID: "alice", Systolic: 120, Diastolic: 80, Source: "cloud",
	})
	assert.Error(t, err)
}

func TestSQLite_ListReadings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	readings := []*model.BloodPressureReading{
		{UserID: "alice", Systolic: 118, Diastolic: 76, Source: model.SourceManual, Timestamp: base},
		{UserID: "alice", Systolic: 131, Diastolic: 84, Source: model.SourceDevice, DeviceID: "d1", Timestamp: base.Add(time.Hour)},
		{UserID: "bob", Systolic: 142, Diastolic: 91, Source: model.SourceManual, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, r := range readings {
		require.NoError(t, db.SaveReading(ctx, r))
	}

	alice, err := db.ListReadings(ctx, model.ReadingFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, 131, alice[0].Systolic, "newest first")
	assert.Equal(t, "d1", alice[0].DeviceID)
	assert.Equal(t, model.SourceDevice, alice[0].Source)

	manual, err := db.ListReadings(ctx, model.ReadingFilter{UserID: "alice", Source: model.SourceManual})
	require.NoError(t, err)
	assert.Len(t, manual, 1)

	limited, err := db.ListReadings(ctx, model.ReadingFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_ListReadings_TimeFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.SaveReading(ctx, &model.BloodPressureReading{
		UserID: "alice", Systolic: 120, Diastolic: 80, Source: model.SourceManual, Timestamp: now,
	}))

	results, err := db.ListReadings(ctx, model.ReadingFilter{
		StartTime: now.Add(-1 * time.Hour),
		EndTime:   now.Add(1 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = db.ListReadings(ctx, model.ReadingFilter{
		StartTime: now.Add(1 * time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, results, 0)
}

func TestSQLite_DeleteReading(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &model.BloodPressureReading{UserID: "alice", Systolic: 120, Diastolic: 80, Source: model.SourceManual}
	require.NoError(t, db.SaveReading(ctx, r))

	err := db.DeleteReading(ctx, "bob", r.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "other users cannot delete")

	require.NoError(t, db.DeleteReading(ctx, "alice", r.ID))

	err = db.DeleteReading(ctx, "alice", r.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSQLite_Notifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	a := &model.Notification{ID: "n_1", UserID: "alice", Kind: model.KindAlert, Title: "A", Timestamp: ts, Seq: 1}
	b := &model.Notification{ID: "n_2", UserID: "alice", Kind: model.KindInfo, Title: "B", Timestamp: ts, Seq: 2}
	other := &model.Notification{ID: "n_3", UserID: "bob", Kind: model.KindAlert, Title: "C", Timestamp: ts, Seq: 1}
	for _, n := range []*model.Notification{a, b, other} {
		require.NoError(t, db.InsertNotification(ctx, n))
	}

	list, err := db.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n_2", list[0].ID, "equal timestamps order by seq descending")
	assert.Equal(t, "n_1", list[1].ID)
	assert.False(t, list[0].Read)
	assert.Equal(t, model.KindInfo, list[0].Kind)

	require.NoError(t, db.MarkNotificationRead(ctx, "alice", "n_1"))
	require.NoError(t, db.MarkNotificationRead(ctx, "alice", "missing"))

	list, err = db.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, list[1].Read)

	require.NoError(t, db.DeleteNotification(ctx, "alice", "n_2"))
	list, err = db.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, db.ClearNotifications(ctx, "alice"))
	list, err = db.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	bobs, err := db.ListNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bobs, 1, "clearing one user leaves the others intact")
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db2.Close()
}
