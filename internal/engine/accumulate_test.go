package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/models"
)

func msgAt(id, room, senderID, senderName, body string, ts time.Time) models.Record {
	return models.Record{
		Message: models.Message{
			ID:         id,
			RoomID:     room,
			RoomName:   room,
			SenderID:   senderID,
			SenderName: senderName,
			Body:       body,
			Timestamp:  ts.UnixMilli(),
		},
	}
}

func TestClampWindowDays(t *testing.T) {
	assert.Equal(t, 0, clampWindowDays(0))
	assert.Equal(t, 0, clampWindowDays(-5))
	assert.Equal(t, 7, clampWindowDays(3))
	assert.Equal(t, 30, clampWindowDays(30))
	assert.Equal(t, 3650, clampWindowDays(5000))
}

func TestAccumulateTotalsAndTopics(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	r1 := msgAt("m1", "general", "u1", "Alice Smith", "morning all", base)
	r1.Classified = true
	r1.RelevanceScore = 6
	r1.Topics = []string{"golang", "testing"}

	r2 := msgAt("m2", "general", "u2", "Bob Jones", "hello", base.Add(time.Minute))
	r3 := msgAt("m3", "random", "u1", "Alice Smith", "lunch?", base.Add(2*time.Minute))

	acc := accumulate([]models.Record{r1, r2, r3})

	assert.Equal(t, 3, acc.totalMessages)
	assert.Equal(t, 1, acc.classifiedMessages)
	assert.Equal(t, 1, acc.withTopicsMessages)
	assert.Len(t, acc.users, 2)
	assert.Len(t, acc.channels, 2)
	assert.Equal(t, 2, acc.users["u1"].count)
	assert.Equal(t, r1.Timestamp, acc.earliestTS)
	assert.Equal(t, r3.Timestamp, acc.latestTS)

	require.Contains(t, acc.topics, "golang")
	assert.Equal(t, 1, acc.topics["golang"].count)
	assert.Equal(t, 6.0, acc.topics["golang"].avgRelevance())
	assert.Equal(t, map[string]int{"golang": 1, "testing": 1}, acc.userTopicCounts["u1"])
}

func TestAccumulateTopicPairs(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	r1 := msgAt("m1", "general", "u1", "Alice", "comparing embedding models", base)
	r1.Topics = []string{"vectors", "benchmarks", "vectors"}

	acc := accumulate([]models.Record{r1})

	key := canonicalPair("vectors", "benchmarks")
	assert.Equal(t, "benchmarks", key.A)
	require.Contains(t, acc.pairs, key)
	assert.Equal(t, 1, acc.pairs[key].coMessages)
	assert.Len(t, acc.pairs, 1)
}

func TestReplyDetection(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	question := msgAt("m1", "general", "u1", "Alice Smith", "anyone tried pgvector for this?", base)
	answer := msgAt("m2", "general", "u2", "Bob Jones", "yes, works great for us", base.Add(5*time.Minute))

	acc := accumulate([]models.Record{question, answer})

	key := edgeKey{Source: "u2", Target: "u1"}
	require.Contains(t, acc.edges, key)
	assert.Equal(t, 1, acc.edges[key].replies)
	assert.Equal(t, 0, acc.edges[key].turns)
}

func TestTurnDetection(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	first := msgAt("m1", "general", "u1", "Alice Smith", "shipping the release today", base)
	second := msgAt("m2", "general", "u2", "Bob Jones", "nice, congrats on the launch", base.Add(3*time.Minute))

	acc := accumulate([]models.Record{first, second})

	key := edgeKey{Source: "u2", Target: "u1"}
	require.Contains(t, acc.edges, key)
	assert.Equal(t, 1, acc.edges[key].turns)
	assert.Equal(t, 0, acc.edges[key].replies)
}

func TestReplyWindowExpires(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	first := msgAt("m1", "general", "u1", "Alice Smith", "is this broken for anyone else?", base)
	late := msgAt("m2", "general", "u2", "Bob Jones", "checking now", base.Add(50*time.Minute))

	acc := accumulate([]models.Record{first, late})

	assert.NotContains(t, acc.edges, edgeKey{Source: "u2", Target: "u1"})
}

func TestMentionDetection(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	earlier := msgAt("m1", "general", "u1", "Alice Smith", "pushed the fix", base)
	mention := msgAt("m2", "general", "u2", "Bob Jones", "thanks Alice, that unblocked me", base.Add(10*time.Minute))

	acc := accumulate([]models.Record{earlier, mention})

	key := edgeKey{Source: "u2", Target: "u1"}
	require.Contains(t, acc.edges, key)
	assert.Equal(t, 1, acc.edges[key].mentions)
}

func TestDMSignalOnMention(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	earlier := msgAt("m1", "general", "u1", "Alice Smith", "happy to talk details", base)
	dm := msgAt("m2", "general", "u2", "Bob Jones", "Alice ping me and we can take this offline", base.Add(2*time.Minute))

	acc := accumulate([]models.Record{earlier, dm})

	key := edgeKey{Source: "u2", Target: "u1"}
	require.Contains(t, acc.edges, key)
	assert.Equal(t, 1, acc.edges[key].dmSignals)
}

func TestHistoryPruning(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	history := []historyEntry{
		{senderID: "old", timestamp: base.Add(-3 * time.Hour).UnixMilli()},
		{senderID: "recent", timestamp: base.Add(-30 * time.Minute).UnixMilli()},
	}

	pruned := pruneHistory(history, base.UnixMilli())
	require.Len(t, pruned, 1)
	assert.Equal(t, "recent", pruned[0].senderID)
}

func TestDistinctTopics(t *testing.T) {
	assert.Nil(t, distinctTopics(nil))
	assert.Equal(t, []string{"a", "b"}, distinctTopics([]string{"a", " b ", "a", ""}))
}
