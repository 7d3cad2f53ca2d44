package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrpls/internal/model"
)

func TestMemoryRunLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	run, err := m.CreateRun(ctx, model.Run{Name: "a", Customers: 4, Vehicles: 2, Capacity: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunQueued, run.Status)

	now := time.Now()
	require.NoError(t, m.StartRun(ctx, run.ID, now))
	got, err := m.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunRunning, got.Status)

	require.NoError(t, m.FinishRun(ctx, run.ID, Outcome{Distance: 8, Encoding: "0 0 1 0", FinishedAt: now}))
	got, err = m.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunSucceeded, got.Status)
	assert.Equal(t, 8.0, got.Distance)
	require.NotNil(t, got.FinishedAt)

	_, err = m.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.FailRun(ctx, "missing", "x", now), ErrNotFound)
}

func TestMemoryListRunsPaginates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 5; i++ {
		r, err := m.CreateRun(ctx, model.Run{})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, m.FailRun(ctx, ids[1], "boom", time.Now()))

	page, next, err := m.ListRuns(ctx, "", "", 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, ids[1], next)

	page, next, err = m.ListRuns(ctx, "", next, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.Empty(t, next)

	failed, _, err := m.ListRuns(ctx, model.RunFailed, "", 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)
}

func TestMemoryWebhookQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.EnqueueWebhook(ctx, "run1", "run.completed", "http://x", "s", []byte(`{}`))
	require.NoError(t, err)

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	later := time.Now().Add(time.Hour)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &later, "500", 500, 3))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "retry is scheduled in the future")

	require.NoError(t, m.FailWebhookDelivery(ctx, id, "gave up", 500, 3))
	d, ok := m.Delivery(id)
	require.True(t, ok)
	assert.Equal(t, "failed", d.Status)
	assert.Equal(t, 2, d.Attempts)
	assert.Equal(t, 1, m.DeadLetters())
}
