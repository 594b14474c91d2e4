// Package notify delivers the smart alert feed to downstream subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Publisher sends alerts somewhere and reports how many were delivered.
type Publisher interface {
	PublishAlerts(ctx context.Context, alerts []models.SmartAlert) (int, error)
	Close() error
}

// AlertMessage is the JSON payload of one published alert.
type AlertMessage struct {
	PublishedAt time.Time         `json:"published_at"`
	Alert       models.SmartAlert `json:"alert"`
}

func encodeAlert(a models.SmartAlert, now time.Time) ([]byte, error) {
	data, err := json.Marshal(AlertMessage{PublishedAt: now.UTC(), Alert: a})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert: %w", err)
	}
	return data, nil
}

// NopPublisher discards alerts.
type NopPublisher struct{}

func (NopPublisher) PublishAlerts(_ context.Context, _ []models.SmartAlert) (int, error) {
	return 0, nil
}

func (NopPublisher) Close() error { return nil }
