package storage

import (
	"context"

	"github.com/xaenox/vibez/internal/models"
)

// Storage is the persistence boundary for messages, classifications, the
// value config, and synthesized daily reports.
type Storage interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	SaveClassification(ctx context.Context, c *models.Classification) error

	// MessagesSince returns all messages joined with their classification
	// (when present) with timestamp >= since, ordered ascending. A since of
	// zero returns everything.
	MessagesSince(ctx context.Context, since int64) ([]models.Record, error)

	DistinctTopics(ctx context.Context) ([]string, error)
	RoomNames(ctx context.Context) ([]string, error)
	ValueConfig(ctx context.Context) (models.ValueConfig, error)

	SaveDailyReport(ctx context.Context, report *models.DailyReport) error
	LatestDailyReport(ctx context.Context) (*models.DailyReport, error)

	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error

	Close() error
}
