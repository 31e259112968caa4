package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/models"
	"github.com/xaenox/vibez/internal/storage"
)

const (
	topUserLimit      = 25
	topChannelLimit   = 25
	topicReportLimit  = 40
	cooccurrenceLimit = 60
	drilldownSamples  = 5
)

// Engine answers analytics queries over stored messages. It is stateless
// between calls: every query re-reads the window and rebuilds its aggregates.
type Engine struct {
	store  storage.Storage
	source NeighborSource
	scope  models.RoomScope
	logger *zap.Logger
	clock  func() time.Time
}

func New(store storage.Storage, source NeighborSource, scope models.RoomScope, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		source: source,
		scope:  scope,
		logger: logger,
		clock:  time.Now,
	}
}

// Stats builds the full windowed report. windowDays <= 0 means all stored
// history.
func (e *Engine) Stats(ctx context.Context, windowDays int) (StatsReport, error) {
	days := clampWindowDays(windowDays)
	now := e.clock()
	since := int64(0)
	if days > 0 {
		since = now.AddDate(0, 0, -days).UnixMilli()
	}

	records, err := e.scopedRecords(ctx, since)
	if err != nil {
		return StatsReport{}, err
	}
	acc := accumulate(records)

	report := StatsReport{
		WindowDays:         days,
		To:                 models.DayKey(now.UnixMilli()),
		TotalMessages:      acc.totalMessages,
		ClassifiedMessages: acc.classifiedMessages,
		WithTopicsMessages: acc.withTopicsMessages,
		Daily:              sortedDailySeries(acc.daily),
		DailyClassified:    sortedDailySeries(acc.dailyClassified),
		DailyWithTopics:    sortedDailySeries(acc.dailyWithTopics),
		Seasonality:        seasonalityOf(acc),
		TopUsers:           activityStats(acc.users, topUserLimit),
		TopChannels:        activityStats(acc.channels, topChannelLimit),
		Topics:             topicLifecycles(acc, now, topicReportLimit),
		Cooccurrence:       cooccurrenceEdges(acc, now, cooccurrenceLimit),
		Network:            buildNetwork(acc),
		Semantic:           buildArcs(ctx, records, e.source, days, since, now, e.logger),
	}
	if acc.earliestTS > 0 {
		report.From = models.DayKey(acc.earliestTS)
	} else if days > 0 {
		report.From = models.DayKey(since)
	} else {
		// All-history query over an empty store still reports a timeline.
		report.From = models.DayKey(now.AddDate(0, 0, -defaultWindowDays).UnixMilli())
	}
	return report, nil
}

// Topic builds the drilldown for one topic, matched case-insensitively.
// FirstSeenEver scans all history regardless of the window.
func (e *Engine) Topic(ctx context.Context, topic string, windowDays int) (TopicDrilldown, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return TopicDrilldown{}, fmt.Errorf("topic must not be empty")
	}
	days := clampWindowDays(windowDays)
	now := e.clock()
	since := int64(0)
	if days > 0 {
		since = now.AddDate(0, 0, -days).UnixMilli()
	}

	records, err := e.scopedRecords(ctx, since)
	if err != nil {
		return TopicDrilldown{}, err
	}

	drilldown := TopicDrilldown{Topic: topic, WindowDays: days}
	lower := strings.ToLower(topic)

	var matched []models.Record
	for _, rec := range records {
		if topicMatches(rec.Topics, lower) {
			matched = append(matched, rec)
		}
	}
	if len(matched) == 0 {
		return drilldown, nil
	}
	drilldown.Found = true

	acc := accumulate(matched)
	for key, ta := range acc.topics {
		if strings.ToLower(key) == lower {
			drilldown.Lifecycle = lifecycleFor(ta, now)
			break
		}
	}
	drilldown.FirstSeenInWindow = models.DayKey(matched[0].Timestamp)
	drilldown.TopUsers = activityStats(acc.users, topUserLimit)
	drilldown.RelatedTopics = relatedTopics(accumulate(records), lower, now)

	for i := len(matched) - 1; i >= 0 && len(drilldown.Samples) < drilldownSamples; i-- {
		rec := matched[i]
		drilldown.Samples = append(drilldown.Samples, MessageSample{
			MessageID:  rec.ID,
			RoomName:   rec.RoomName,
			SenderName: rec.SenderName,
			Body:       excerpt(rec.Body, excerptRunes),
			Timestamp:  rec.Timestamp,
		})
	}

	drilldown.FirstSeenEver = drilldown.FirstSeenInWindow
	if first, err := e.firstSeenEver(ctx, lower); err != nil {
		// The drilldown stands without the all-history lookup.
		e.logger.Warn("First-seen scan failed", zap.Error(err), zap.String("topic", topic))
	} else if first != "" {
		drilldown.FirstSeenEver = first
	}
	return drilldown, nil
}

// Dashboard scores the lookback window into the contribution sections.
func (e *Engine) Dashboard(ctx context.Context, lookbackDays, candidateLimit int) (ContributionDashboard, error) {
	days := clampLookbackDays(lookbackDays)
	now := e.clock()
	since := now.AddDate(0, 0, -days).UnixMilli()

	records, err := e.scopedRecords(ctx, since)
	if err != nil {
		return ContributionDashboard{}, err
	}
	return buildDashboard(records, e.valueConfig(ctx), days, candidateLimit, now), nil
}

func (e *Engine) scopedRecords(ctx context.Context, since int64) ([]models.Record, error) {
	records, err := e.store.MessagesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error loading messages: %w", err)
	}
	scoped := records[:0:0]
	for _, rec := range records {
		if e.scope.Includes(rec.RoomID, rec.RoomName) {
			scoped = append(scoped, rec)
		}
	}
	return scoped, nil
}

func (e *Engine) valueConfig(ctx context.Context) models.ValueConfig {
	cfg, err := e.store.ValueConfig(ctx)
	if err != nil {
		e.logger.Warn("Falling back to default value config", zap.Error(err))
		return models.DefaultValueConfig()
	}
	return cfg
}

func (e *Engine) firstSeenEver(ctx context.Context, lowerTopic string) (string, error) {
	all, err := e.store.MessagesSince(ctx, 0)
	if err != nil {
		return "", err
	}
	for _, rec := range all {
		if !e.scope.Includes(rec.RoomID, rec.RoomName) {
			continue
		}
		if topicMatches(rec.Topics, lowerTopic) {
			return models.DayKey(rec.Timestamp), nil
		}
	}
	return "", nil
}

func topicMatches(topics []string, lower string) bool {
	for _, t := range topics {
		if strings.ToLower(strings.TrimSpace(t)) == lower {
			return true
		}
	}
	return false
}

func seasonalityOf(acc *accumulation) Seasonality {
	s := Seasonality{Weekday: acc.weekday, Hour: acc.hour}
	s.PeakWeekday = time.Weekday(peakIndex(acc.weekday[:])).String()
	s.PeakHour = peakIndex(acc.hour[:])
	return s
}

func activityStats(stats map[string]*statAccumulator, limit int) []ActivityStat {
	out := make([]ActivityStat, 0, len(stats))
	for _, a := range stats {
		out = append(out, ActivityStat{
			ID:           a.key,
			Name:         a.name,
			MessageCount: a.count,
			ActiveDays:   len(a.activeDays),
			AvgRelevance: a.avgRelevance(),
			FirstSeen:    models.DayKey(a.firstTS),
			LastSeen:     models.DayKey(a.lastTS),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageCount == out[j].MessageCount {
			return out[i].ID < out[j].ID
		}
		return out[i].MessageCount > out[j].MessageCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topicLifecycles(acc *accumulation, now time.Time, limit int) []TopicLifecycle {
	out := make([]TopicLifecycle, 0, len(acc.topics))
	for _, ta := range acc.topics {
		out = append(out, lifecycleFor(ta, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageCount == out[j].MessageCount {
			return out[i].Topic < out[j].Topic
		}
		return out[i].MessageCount > out[j].MessageCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cooccurrenceEdges(acc *accumulation, now time.Time, limit int) []CooccurrenceEdge {
	out := make([]CooccurrenceEdge, 0, len(acc.pairs))
	for key, pair := range acc.pairs {
		out = append(out, CooccurrenceEdge{
			TopicA:     key.A,
			TopicB:     key.B,
			CoMessages: pair.coMessages,
			Trend:      trendDirection(pair.daily, now, trendThresholdPair),
			LastSeen:   models.DayKey(pair.lastTS),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CoMessages == out[j].CoMessages {
			if out[i].TopicA == out[j].TopicA {
				return out[i].TopicB < out[j].TopicB
			}
			return out[i].TopicA < out[j].TopicA
		}
		return out[i].CoMessages > out[j].CoMessages
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func relatedTopics(acc *accumulation, lowerTopic string, now time.Time) []CooccurrenceEdge {
	var related []CooccurrenceEdge
	for key, pair := range acc.pairs {
		if strings.ToLower(key.A) != lowerTopic && strings.ToLower(key.B) != lowerTopic {
			continue
		}
		related = append(related, CooccurrenceEdge{
			TopicA:     key.A,
			TopicB:     key.B,
			CoMessages: pair.coMessages,
			Trend:      trendDirection(pair.daily, now, trendThresholdPair),
			LastSeen:   models.DayKey(pair.lastTS),
		})
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].CoMessages == related[j].CoMessages {
			if related[i].TopicA == related[j].TopicA {
				return related[i].TopicB < related[j].TopicB
			}
			return related[i].TopicA < related[j].TopicA
		}
		return related[i].CoMessages > related[j].CoMessages
	})
	if len(related) > cooccurrenceLimit {
		related = related[:cooccurrenceLimit]
	}
	return related
}
