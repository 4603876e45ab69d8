// Package notify delivers user-facing notifications as webhook POSTs.
// The payload carries a deep link so the receiving shell can open the
// right screen.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EventType identifies the kind of notification.
type EventType string

const (
	EventExposureDetected  EventType = "exposure_detected"
	EventProcessingOverdue EventType = "processing_overdue"
)

// Event is a single notification payload.
type Event struct {
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	DeepLink  string         `json:"deepLink,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers notifications to the user-facing shell.
type Notifier interface {
	// ExposureDetected notifies about a newly recorded exposure on the
	// given calendar date.
	ExposureDetected(ctx context.Context, exposureDate time.Time) error
	// ProcessingOverdue warns that no successful key processing cycle
	// has completed since lastProcessed.
	ProcessingOverdue(ctx context.Context, lastProcessed time.Time) error
}

// Webhook posts events to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL yields a notifier
// that only logs, so callers never need a nil check.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) ExposureDetected(ctx context.Context, exposureDate time.Time) error {
	epochDay := exposureDate.UTC().Unix() / 86400
	return w.send(ctx, Event{
		Type:     EventExposureDetected,
		Message:  fmt.Sprintf("Possible exposure on %s", exposureDate.Format("2006-01-02")),
		DeepLink: fmt.Sprintf("exposure-agent://exposure?date=%d", epochDay),
		Details: map[string]any{
			"exposureDateEpochDay": epochDay,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (w *Webhook) ProcessingOverdue(ctx context.Context, lastProcessed time.Time) error {
	return w.send(ctx, Event{
		Type:    EventProcessingOverdue,
		Message: fmt.Sprintf("Key processing has not succeeded since %s", lastProcessed.Format(time.RFC3339)),
		Details: map[string]any{
			"lastProcessed": lastProcessed.UTC().Format(time.RFC3339),
		},
		Timestamp: time.Now().UTC(),
	})
}

func (w *Webhook) send(ctx context.Context, ev Event) error {
	if w.url == "" {
		zap.L().Info("notification webhook not configured, dropping event",
			zap.String("type", string(ev.Type)),
		)
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: send event")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("notification sent", zap.String("type", string(ev.Type)))
	return nil
}
