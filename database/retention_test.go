package database

import (
	"context"
	"testing"
	"time"

	"github.com/arjun7095/Chat-Application/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneOlderThan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.InsertMessage(ctx, &models.Message{Room: "lobby", Text: "stale", Timestamp: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.InsertMessage(ctx, &models.Message{Room: "lobby", Text: "fresh", Timestamp: now.Add(-time.Minute)}))

	n, err := PruneOlderThan(ctx, store, time.Hour, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	msgs, err := store.FindRecentMessages(ctx, "lobby", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh", msgs[0].Text)
}

func TestScheduleRetention(t *testing.T) {
	store := NewMemoryStore()

	c := cron.New()
	require.NoError(t, ScheduleRetention(c, store, "@every 1m", 0, time.Second))
	assert.Empty(t, c.Entries(), "zero window disables retention")

	require.NoError(t, ScheduleRetention(c, store, "@every 1m", time.Hour, time.Second))
	assert.Len(t, c.Entries(), 1)

	assert.Error(t, ScheduleRetention(c, store, "not a schedule", time.Hour, time.Second))
}
