package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/vibez/internal/models"
)

func TestSimpleClassifierMatchesTopics(t *testing.T) {
	clf := NewSimpleClassifier()
	cfg := models.ValueConfig{
		Topics:         []string{"context-management", "orchestration"},
		Projects:       []string{"analytics-pipeline"},
		AlertThreshold: 4,
	}

	msg := models.Message{
		ID:   "m1",
		Body: "working on context management for the orchestration layer of the analytics pipeline",
	}
	c := clf.Classify(context.Background(), msg, cfg)

	assert.Equal(t, "m1", c.MessageID)
	assert.ElementsMatch(t, []string{"context-management", "orchestration"}, c.Topics)
	assert.Equal(t, []string{"analytics-pipeline"}, c.ContributionThemes)
	assert.Equal(t, 5, c.RelevanceScore)
	assert.Equal(t, models.AlertDigest, c.AlertLevel)
	assert.False(t, c.ContributionFlag)
}

func TestSimpleClassifierNoMatch(t *testing.T) {
	clf := NewSimpleClassifier()
	c := clf.Classify(context.Background(), models.Message{ID: "m2", Body: "lunch anyone?"}, models.DefaultValueConfig())

	assert.Zero(t, c.RelevanceScore)
	assert.Empty(t, c.Topics)
	assert.Equal(t, models.AlertNone, c.AlertLevel)
}

func TestStripJSONFences(t *testing.T) {
	fenced := "```json\n{\"relevance_score\": 5}\n```"
	assert.Equal(t, `{"relevance_score": 5}`, stripJSONFences(fenced))
	assert.Equal(t, `{"a":1}`, stripJSONFences(`{"a":1}`))
}
