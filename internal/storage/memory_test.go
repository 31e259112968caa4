package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/models"
)

func TestMemoryStorageMessagesSince(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.SaveMessage(ctx, &models.Message{
			ID:        id,
			RoomID:    "general",
			RoomName:  "general",
			SenderID:  "u1",
			Body:      "hello",
			Timestamp: base.Add(time.Duration(i/2) * time.Hour).UnixMilli(),
		}))
	}

	records, err := store.MessagesSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Ascending by timestamp, id breaks ties.
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "c", records[2].ID)

	later, err := store.MessagesSince(ctx, base.Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "c", later[0].ID)
}

func TestMemoryStorageClassificationJoin(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, &models.Message{
		ID: "m1", RoomID: "general", RoomName: "general", SenderID: "u1",
		Body: "hello", Timestamp: 1000,
	}))
	require.NoError(t, store.SaveClassification(ctx, &models.Classification{
		MessageID:      "m1",
		RelevanceScore: 7,
		Topics:         []string{"golang"},
		AlertLevel:     "HOT",
	}))

	records, err := store.MessagesSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.True(t, rec.Classified)
	assert.Equal(t, 7, rec.RelevanceScore)
	assert.Equal(t, []string{"golang"}, rec.Topics)
	assert.Equal(t, models.AlertHot, rec.AlertLevel)
}

func TestMemoryStorageAssignsIDs(t *testing.T) {
	store := NewMemoryStorage()
	msg := &models.Message{RoomID: "general", Timestamp: 1}
	require.NoError(t, store.SaveMessage(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
}

func TestMemoryStorageDailyReports(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	latest, err := store.LatestDailyReport(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.SaveDailyReport(ctx, &models.DailyReport{ReportDate: "2026-08-27", DailyMemo: "old"}))
	require.NoError(t, store.SaveDailyReport(ctx, &models.DailyReport{ReportDate: "2026-08-28", DailyMemo: "new"}))

	latest, err = store.LatestDailyReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.DailyMemo)
}

func TestMemoryStorageValueConfig(t *testing.T) {
	store := NewMemoryStorage()
	cfg, err := store.ValueConfig(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Topics)

	store.SetValueConfig(models.ValueConfig{Topics: []string{"only"}, AlertThreshold: 5})
	cfg, err = store.ValueConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, cfg.Topics)
	assert.Equal(t, 5, cfg.AlertThreshold)
}

func TestMemoryStorageSyncState(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	value, err := store.GetSyncState(ctx, "cursor")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetSyncState(ctx, "cursor", "tok-123"))
	value, err = store.GetSyncState(ctx, "cursor")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", value)
}
