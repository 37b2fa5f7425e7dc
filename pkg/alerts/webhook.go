package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook event names.
const (
	EventVitalsAlert    = "vitals.alert"
	EventVitalsCritical = "vitals.alert.critical"
)

// WebhookNotifier posts alert notifications to a generic HTTP endpoint.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier creates a generic webhook notifier.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Send posts one notification. Receivers can de-duplicate retries on the
// X-Pulse-Notification header.
func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(newWebhookPayload(alert, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pulse-Guardian/1.0")
	if alert.NotificationID != "" {
		req.Header.Set("X-Pulse-Notification", alert.NotificationID)
	}
	if w.secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+computeHMAC(body, []byte(w.secret)))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook for %s returned status %d", alert.UserID, resp.StatusCode)
	}
	return nil
}

// webhookPayload is the flat JSON document receivers get.
type webhookPayload struct {
	Event          string     `json:"event"`
	UserID         string     `json:"user_id"`
	NotificationID string     `json:"notification_id,omitempty"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Level          AlertLevel `json:"level"`
	Critical       bool       `json:"critical"`
	RaisedAt       string     `json:"raised_at,omitempty"`
	SentAt         string     `json:"sent_at"`
}

func newWebhookPayload(alert Alert, now time.Time) webhookPayload {
	p := webhookPayload{
		Event:          EventVitalsAlert,
		UserID:         alert.UserID,
		NotificationID: alert.NotificationID,
		Title:          alert.Title,
		Message:        alert.Message,
		Level:          alert.Level,
		Critical:       alert.Level == AlertCritical,
		SentAt:         now.Format(time.RFC3339),
	}
	if p.Critical {
		p.Event = EventVitalsCritical
	}
	if !alert.Timestamp.IsZero() {
		p.RaisedAt = alert.Timestamp.UTC().Format(time.RFC3339)
	}
	return p
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
