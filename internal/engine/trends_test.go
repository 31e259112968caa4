package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecurrenceLabel(t *testing.T) {
	assert.Equal(t, "medium", recurrenceLabel(4, 0.5))
	assert.Equal(t, "high", recurrenceLabel(8, 0.45))
	assert.Equal(t, "low", recurrenceLabel(3, 0.9))
	assert.Equal(t, "low", recurrenceLabel(10, 0.1))
}

func TestTrendDirection(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	daily := map[string]int{}
	for offset := 0; offset < 6; offset++ {
		daily[now.AddDate(0, 0, -offset).Format("2006-01-02")] = 1
	}
	daily[now.AddDate(0, 0, -8).Format("2006-01-02")] = 2
	assert.Equal(t, "up", trendDirection(daily, now, trendThresholdTopic))

	flat := map[string]int{
		now.AddDate(0, 0, -1).Format("2006-01-02"): 4,
		now.AddDate(0, 0, -9).Format("2006-01-02"): 4,
	}
	assert.Equal(t, "flat", trendDirection(flat, now, trendThresholdTopic))

	down := map[string]int{
		now.AddDate(0, 0, -1).Format("2006-01-02"):  1,
		now.AddDate(0, 0, -10).Format("2006-01-02"): 4,
	}
	assert.Equal(t, "down", trendDirection(down, now, trendThresholdTopic))

	// Pair edges move on a lower threshold.
	pair := map[string]int{
		now.Format("2006-01-02"):                   3,
		now.AddDate(0, 0, -8).Format("2006-01-02"): 1,
	}
	assert.Equal(t, "up", trendDirection(pair, now, trendThresholdPair))
}

func TestSpanDays(t *testing.T) {
	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, spanDays(day.UnixMilli(), day.Add(2*time.Hour).UnixMilli()))
	assert.Equal(t, 8, spanDays(day.UnixMilli(), day.AddDate(0, 0, 7).UnixMilli()))
}

func TestPeakIndexTiesResolveLow(t *testing.T) {
	assert.Equal(t, 1, peakIndex([]int{0, 5, 3, 5}))
	assert.Equal(t, 0, peakIndex([]int{2, 2, 2}))
}

func TestLifecycleFor(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	a := newStatAccumulator("golang", "golang")
	first := now.AddDate(0, 0, -7)
	for offset := 0; offset < 4; offset++ {
		ts := first.AddDate(0, 0, offset*2)
		a.observe(msgAt("m", "general", "u1", "Alice", "body", ts))
	}

	lc := lifecycleFor(a, now)
	assert.Equal(t, "golang", lc.Topic)
	assert.Equal(t, 4, lc.MessageCount)
	assert.Equal(t, 4, lc.ActiveDays)
	assert.Equal(t, 7, lc.SpanDays)
	assert.InDelta(t, 4.0/7.0, lc.RecurrenceRatio, 1e-9)
	assert.Equal(t, "medium", lc.RecurrenceLabel)
	assert.Len(t, lc.DailySeries, 4)
}
