package engine

import (
	"time"

	"github.com/xaenox/vibez/internal/models"
)

const (
	trendThresholdTopic = 3
	trendThresholdPair  = 2
)

// daysBetween counts whole calendar days between two epoch-ms timestamps.
func daysBetween(first, last int64) int {
	a := time.UnixMilli(first)
	b := time.UnixMilli(last)
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location())
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, b.Location())
	days := int(bDay.Sub(aDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// spanDays is the inclusive lifespan of an accumulator in days, never zero.
func spanDays(firstTS, lastTS int64) int {
	span := daysBetween(firstTS, lastTS) + 1
	if span < 1 {
		return 1
	}
	return span
}

// recurrenceLabel buckets how persistently a topic recurs over its lifespan.
func recurrenceLabel(activeDays int, ratio float64) string {
	switch {
	case activeDays >= 8 && ratio >= 0.4:
		return "high"
	case activeDays >= 4 && ratio >= 0.2:
		return "medium"
	default:
		return "low"
	}
}

// trendDirection compares activity in the trailing 7 calendar days against
// the 7 before that. The threshold differs between topics and pair edges.
func trendDirection(daily map[string]int, now time.Time, threshold int) string {
	last7, prev7 := windowCounts(daily, now)
	switch {
	case last7 >= prev7+threshold:
		return "up"
	case prev7 >= last7+threshold:
		return "down"
	default:
		return "flat"
	}
}

func windowCounts(daily map[string]int, now time.Time) (last7, prev7 int) {
	for offset := 0; offset < 7; offset++ {
		day := now.AddDate(0, 0, -offset).Format("2006-01-02")
		last7 += daily[day]
	}
	for offset := 7; offset < 14; offset++ {
		day := now.AddDate(0, 0, -offset).Format("2006-01-02")
		prev7 += daily[day]
	}
	return last7, prev7
}

// peakIndex returns the index of the histogram maximum; ties resolve to the
// lowest index.
func peakIndex(histogram []int) int {
	peak := 0
	for i := range histogram {
		if histogram[i] > histogram[peak] {
			peak = i
		}
	}
	return peak
}

// lifecycleFor derives the full lifecycle block for one accumulator.
func lifecycleFor(a *statAccumulator, now time.Time) TopicLifecycle {
	span := spanDays(a.firstTS, a.lastTS)
	active := len(a.activeDays)
	ratio := float64(active) / float64(maxInt(1, span))
	if ratio > 1 {
		ratio = 1
	}
	return TopicLifecycle{
		Topic:           a.key,
		MessageCount:    a.count,
		ActiveDays:      active,
		SpanDays:        span,
		RecurrenceRatio: ratio,
		RecurrenceLabel: recurrenceLabel(active, ratio),
		Trend:           trendDirection(a.daily, now, trendThresholdTopic),
		AvgRelevance:    a.avgRelevance(),
		FirstSeen:       models.DayKey(a.firstTS),
		LastSeen:        models.DayKey(a.lastTS),
		DailySeries:     sortedDailySeries(a.daily),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
