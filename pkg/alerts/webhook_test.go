package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/alerts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Name(t *testing.T) {
	n := alerts.NewWebhookNotifier("https://example.com/webhook", "")
	assert.Equal(t, "webhook", n.Name())
}

func TestWebhookNotifier_Send(t *testing.T) {
	var received map[string]any
	var notificationHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Pulse-Guardian/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, http.MethodPost, r.Method)
		notificationHeader = r.Header.Get("X-Pulse-Notification")

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	alert := alerts.Alert{
		Level:          alerts.AlertWarning,
		UserID:         "alice",
		NotificationID: "n_7_abcdef12",
		Title:          "High Heart Rate",
		Message:        "Heart rate 130 bpm (feed)",
		Timestamp:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	err := n.Send(context.Background(), alert)
	require.NoError(t, err)
	assert.Equal(t, "n_7_abcdef12", notificationHeader)
	assert.Equal(t, alerts.EventVitalsAlert, received["event"])
	assert.Equal(t, "alice", received["user_id"])
	assert.Equal(t, "n_7_abcdef12", received["notification_id"])
	assert.Equal(t, "High Heart Rate", received["title"])
	assert.Equal(t, "Heart rate 130 bpm (feed)", received["message"])
	assert.Equal(t, "warning", received["level"])
	assert.Equal(t, false, received["critical"])
	assert.Equal(t, "2026-03-01T08:00:00Z", received["raised_at"])
	assert.NotEmpty(t, received["sent_at"])
	assert.NotContains(t, received, "alert")
}

func TestWebhookNotifier_Send_Critical(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), alerts.Alert{
		Level:  alerts.AlertCritical,
		UserID: "bob",
		Title:  "Hypertensive Crisis",
	})
	require.NoError(t, err)
	assert.Equal(t, alerts.EventVitalsCritical, received["event"])
	assert.Equal(t, true, received["critical"])
	assert.NotContains(t, received, "raised_at")
	assert.NotContains(t, received, "notification_id")
}

func TestWebhookNotifier_Send_WithHMAC(t *testing.T) {
	var signature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "test-secret")
	err := n.Send(context.Background(), alerts.Alert{Level: alerts.AlertWarning})
	require.NoError(t, err)
	assert.True(t, len(signature) > 0)
	assert.Contains(t, signature, "sha256=")
}

func TestWebhookNotifier_Send_NoHMAC(t *testing.T) {
	var hasSignature bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get("X-Signature-256") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), alerts.Alert{Level: alerts.AlertWarning})
	require.NoError(t, err)
	assert.False(t, hasSignature)
}

func TestWebhookNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), alerts.Alert{Level: alerts.AlertWarning})
	assert.Error(t, err)
}
