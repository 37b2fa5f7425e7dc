package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerts"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier_Send(t *testing.T) {
	w := &recordingWriter{}
	n := alerts.NewKafkaNotifierWithWriter(w)
	assert.Equal(t, "kafka", n.Name())

	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	err := n.Send(context.Background(), alerts.Alert{
		Level:     alerts.AlertCritical,
		UserID:    "alice",
		Title:     "Hypertension Stage 2",
		Message:   "150/95 mmHg, Hypertension Stage 2",
		Timestamp: ts,
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "alice", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "critical", string(msg.Headers[0].Value))

	var decoded alerts.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "Hypertension Stage 2", decoded.Title)
}

func TestKafkaNotifier_SendError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	n := alerts.NewKafkaNotifierWithWriter(w)

	err := n.Send(context.Background(), alerts.Alert{UserID: "alice"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaNotifier_Close(t *testing.T) {
	w := &recordingWriter{}
	n := alerts.NewKafkaNotifierWithWriter(w)
	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaNotifier_Validation(t *testing.T) {
	_, err := alerts.NewKafkaNotifier(nil, "pulse.notifications")
	assert.Error(t, err)

	_, err = alerts.NewKafkaNotifier([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	n, err := alerts.NewKafkaNotifier([]string{"localhost:9092"}, "pulse.notifications")
	require.NoError(t, err)
	assert.NoError(t, n.Close())
}
