package store

import (
	"context"
	"errors"
	"time"

	"vrpls/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, status, cursor string, limit int) (items []model.Run, nextCursor string, err error)
	StartRun(ctx context.Context, id string, at time.Time) error
	FinishRun(ctx context.Context, id string, out Outcome) error
	FailRun(ctx context.Context, id, reason string, at time.Time) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// Outcome is what a successful run persists.
type Outcome struct {
	Distance   float64
	Encoding   string
	Routes     [][]int
	Metrics    *model.RunMetrics
	FinishedAt time.Time
}

var ErrNotFound = errors.New("not found")
