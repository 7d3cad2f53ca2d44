package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vrpls/internal/model"
	"vrpls/internal/store"
)

// Event types
const (
	RunCompleted = "run.completed"
	RunFailed    = "run.failed"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit enqueues an event for the run's callback. Runs without a callback
// are skipped.
func (p *Publisher) Emit(ctx context.Context, run model.Run, eventType string, data any) (string, error) {
	if run.Callback == nil || run.Callback.URL == "" {
		return "", nil
	}
	payload := map[string]any{
		"id":    "evt_" + uuid.New().String(),
		"type":  eventType,
		"runId": run.ID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return p.Store.EnqueueWebhook(ctx, run.ID, eventType, run.Callback.URL, run.Callback.Secret, body)
}
