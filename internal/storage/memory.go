package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/xaenox/vibez/internal/models"
)

// MemoryStorage is an in-memory Storage used for tests and local runs.
type MemoryStorage struct {
	mu              sync.RWMutex
	messages        map[string]*models.Message
	classifications map[string]*models.Classification
	reports         map[string]*models.DailyReport
	syncState       map[string]string
	valueConfig     models.ValueConfig
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages:        make(map[string]*models.Message),
		classifications: make(map[string]*models.Classification),
		reports:         make(map[string]*models.DailyReport),
		syncState:       make(map[string]string),
		valueConfig:     models.DefaultValueConfig(),
	}
}

// SetValueConfig replaces the interest lexicon (test hook).
func (s *MemoryStorage) SetValueConfig(config models.ValueConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valueConfig = config
}

func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *MemoryStorage) SaveClassification(ctx context.Context, c *models.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	copied.AlertLevel = models.NormalizeAlertLevel(string(c.AlertLevel))
	s.classifications[c.MessageID] = &copied
	return nil
}

func (s *MemoryStorage) MessagesSince(ctx context.Context, since int64) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.Record, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.Timestamp < since {
			continue
		}
		rec := models.Record{
			Message:            *msg,
			Topics:             []string{},
			Entities:           []string{},
			ContributionThemes: []string{},
			AlertLevel:         models.AlertNone,
		}
		if c, ok := s.classifications[msg.ID]; ok {
			rec.Classified = true
			rec.RelevanceScore = c.RelevanceScore
			rec.Topics = append(rec.Topics, c.Topics...)
			rec.Entities = append(rec.Entities, c.Entities...)
			rec.ContributionFlag = c.ContributionFlag
			rec.ContributionThemes = append(rec.ContributionThemes, c.ContributionThemes...)
			rec.ContributionHint = c.ContributionHint
			rec.AlertLevel = c.AlertLevel
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp == records[j].Timestamp {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp < records[j].Timestamp
	})
	return records, nil
}

func (s *MemoryStorage) DistinctTopics(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var topics []string
	for _, c := range s.classifications {
		for _, topic := range c.Topics {
			if _, dup := seen[topic]; dup {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

func (s *MemoryStorage) RoomNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var names []string
	for _, msg := range s.messages {
		if _, dup := seen[msg.RoomName]; dup {
			continue
		}
		seen[msg.RoomName] = struct{}{}
		names = append(names, msg.RoomName)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) ValueConfig(ctx context.Context) (models.ValueConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valueConfig, nil
}

func (s *MemoryStorage) SaveDailyReport(ctx context.Context, report *models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	copied := *report
	s.reports[report.ReportDate] = &copied
	return nil
}

func (s *MemoryStorage) LatestDailyReport(ctx context.Context) (*models.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.DailyReport
	for _, report := range s.reports {
		if latest == nil || report.ReportDate > latest.ReportDate {
			latest = report
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *MemoryStorage) GetSyncState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncState[key], nil
}

func (s *MemoryStorage) SetSyncState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncState[key] = value
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
