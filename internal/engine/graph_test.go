package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/models"
)

func TestEdgeWeight(t *testing.T) {
	assert.InDelta(t, 9.7, edgeWeight(2, 1, 1, 3), 1e-9)
	assert.InDelta(t, 0.8, edgeWeight(0, 0, 0, 1), 1e-9)
}

func TestBuildNetworkDropsLightEdges(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	acc := accumulate([]models.Record{
		msgAt("m1", "general", "u1", "Alice", "hello", base),
		msgAt("m2", "general", "u2", "Bob", "hello", base.Add(time.Minute)),
	})
	acc.edges[edgeKey{Source: "u1", Target: "u2"}] = &edgeCounters{
		sourceName: "Alice", targetName: "Bob", turns: 1,
	}
	acc.edges[edgeKey{Source: "u2", Target: "u1"}] = &edgeCounters{
		sourceName: "Bob", targetName: "Alice", replies: 2,
	}

	graph := buildNetwork(acc)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "u2", graph.Edges[0].SourceID)
	assert.InDelta(t, 3.6, graph.Edges[0].Weight, 1e-9)
}

func TestNetworkNeverEmitsSelfEdges(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	// One user talking to themself: self-mentions and self-replies.
	acc := accumulate([]models.Record{
		msgAt("m1", "general", "u1", "Alice", "thinking out loud?", base),
		msgAt("m2", "general", "u1", "Alice", "Alice answering Alice, naturally", base.Add(time.Minute)),
	})
	for key := range acc.edges {
		assert.NotEqual(t, key.Source, key.Target)
	}

	// Even a hand-planted self edge never reaches the output graph.
	acc.edges[edgeKey{Source: "u1", Target: "u1"}] = &edgeCounters{
		sourceName: "Alice", targetName: "Alice", replies: 5,
	}
	graph := buildNetwork(acc)
	for _, edge := range graph.Edges {
		assert.NotEqual(t, edge.SourceID, edge.TargetID)
	}
}

func TestBuildAlignment(t *testing.T) {
	acc := newAccumulation()
	acc.userTopicCounts["a"] = map[string]int{"golang": 3, "vectors": 2, "infra": 1}
	acc.userTopicCounts["b"] = map[string]int{"golang": 2, "vectors": 1, "music": 5}
	acc.userTopicCounts["c"] = map[string]int{"cooking": 4}

	nodes := []NetworkNode{
		{UserID: "a", Name: "Alice"},
		{UserID: "b", Name: "Bob"},
		{UserID: "c", Name: "Cleo"},
	}

	edges := buildAlignment(acc, nodes)
	require.Len(t, edges, 1)
	edge := edges[0]
	assert.Equal(t, "a", edge.UserA)
	assert.Equal(t, "b", edge.UserB)
	assert.Equal(t, []string{"golang", "vectors"}, edge.SharedTopics)
	assert.Greater(t, edge.Similarity, minAlignmentSim)
}

func TestBuildAlignmentRequiresSharedTopics(t *testing.T) {
	acc := newAccumulation()
	// High cosine but only one shared topic.
	acc.userTopicCounts["a"] = map[string]int{"golang": 10}
	acc.userTopicCounts["b"] = map[string]int{"golang": 10}

	edges := buildAlignment(acc, []NetworkNode{{UserID: "a"}, {UserID: "b"}})
	assert.Empty(t, edges)
}

func TestCosineSimilarity(t *testing.T) {
	a := map[string]int{"x": 3, "y": 2, "z": 1}
	b := map[string]int{"x": 2, "y": 1, "w": 5}
	// dot = 8, |a| = sqrt(14), |b| = sqrt(30)
	assert.InDelta(t, 8.0/20.4939, cosineSimilarity(a, b), 1e-4)
	assert.Zero(t, cosineSimilarity(a, map[string]int{}))
}
