package engine

import (
	"math"
	"sort"
)

const (
	relationshipNodeCap = 220
	alignmentNodeCap    = 120
	relationshipEdgeCap = 1800
	minEdgeWeight       = 1.0
	minAlignmentSim     = 0.18
	minSharedTopics     = 2
	maxSharedTopics     = 4

	weightReplies   = 1.8
	weightMentions  = 1.3
	weightDMSignals = 2.4
	weightTurns     = 0.8
)

// edgeWeight is the fixed linear combination of the four signal counters.
// Recomputing from the counters must reproduce the stored weight exactly.
func edgeWeight(replies, mentions, dmSignals, turns int) float64 {
	return weightReplies*float64(replies) +
		weightMentions*float64(mentions) +
		weightDMSignals*float64(dmSignals) +
		weightTurns*float64(turns)
}

// buildNetwork derives the social graph and the topic-alignment overlay
// from one accumulation pass.
func buildNetwork(acc *accumulation) NetworkGraph {
	nodes := topUsers(acc, relationshipNodeCap)
	nodeSet := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		nodeSet[node.UserID] = struct{}{}
	}

	edges := make([]RelationshipEdge, 0, len(acc.edges))
	for key, counters := range acc.edges {
		if key.Source == key.Target {
			continue
		}
		if _, ok := nodeSet[key.Source]; !ok {
			continue
		}
		if _, ok := nodeSet[key.Target]; !ok {
			continue
		}
		weight := edgeWeight(counters.replies, counters.mentions, counters.dmSignals, counters.turns)
		if weight < minEdgeWeight {
			continue
		}
		edges = append(edges, RelationshipEdge{
			SourceID:   key.Source,
			SourceName: counters.sourceName,
			TargetID:   key.Target,
			TargetName: counters.targetName,
			Replies:    counters.replies,
			Mentions:   counters.mentions,
			DMSignals:  counters.dmSignals,
			Turns:      counters.turns,
			Weight:     weight,
		})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Weight == edges[j].Weight {
			if edges[i].SourceID == edges[j].SourceID {
				return edges[i].TargetID < edges[j].TargetID
			}
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].Weight > edges[j].Weight
	})
	if len(edges) > relationshipEdgeCap {
		edges = edges[:relationshipEdgeCap]
	}

	alignmentNodes := nodes
	if len(alignmentNodes) > alignmentNodeCap {
		alignmentNodes = alignmentNodes[:alignmentNodeCap]
	}

	return NetworkGraph{
		Nodes:     nodes,
		Edges:     edges,
		Alignment: buildAlignment(acc, alignmentNodes),
	}
}

// topUsers ranks users by message volume, capped.
func topUsers(acc *accumulation, limit int) []NetworkNode {
	nodes := make([]NetworkNode, 0, len(acc.users))
	for _, user := range acc.users {
		nodes = append(nodes, NetworkNode{
			UserID:       user.key,
			Name:         user.name,
			MessageCount: user.count,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].MessageCount == nodes[j].MessageCount {
			return nodes[i].UserID < nodes[j].UserID
		}
		return nodes[i].MessageCount > nodes[j].MessageCount
	})
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes
}

// buildAlignment emits undirected edges between users whose topic-frequency
// vectors are similar enough and overlap on enough topics.
func buildAlignment(acc *accumulation, nodes []NetworkNode) []TopicAlignmentEdge {
	var edges []TopicAlignmentEdge
	for i := 0; i < len(nodes); i++ {
		vecA := acc.userTopicCounts[nodes[i].UserID]
		if len(vecA) == 0 {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			vecB := acc.userTopicCounts[nodes[j].UserID]
			if len(vecB) == 0 {
				continue
			}
			similarity := cosineSimilarity(vecA, vecB)
			if similarity < minAlignmentSim {
				continue
			}
			shared := sharedTopics(vecA, vecB)
			if len(shared) < minSharedTopics {
				continue
			}
			if len(shared) > maxSharedTopics {
				shared = shared[:maxSharedTopics]
			}
			edges = append(edges, TopicAlignmentEdge{
				UserA:        nodes[i].UserID,
				UserAName:    nodes[i].Name,
				UserB:        nodes[j].UserID,
				UserBName:    nodes[j].Name,
				Similarity:   similarity,
				SharedTopics: shared,
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Similarity == edges[j].Similarity {
			if edges[i].UserA == edges[j].UserA {
				return edges[i].UserB < edges[j].UserB
			}
			return edges[i].UserA < edges[j].UserA
		}
		return edges[i].Similarity > edges[j].Similarity
	})
	return edges
}

// cosineSimilarity over sparse topic-frequency vectors.
func cosineSimilarity(a, b map[string]int) float64 {
	var dot, normA, normB float64
	for topic, countA := range a {
		normA += float64(countA) * float64(countA)
		if countB, ok := b[topic]; ok {
			dot += float64(countA) * float64(countB)
		}
	}
	for _, countB := range b {
		normB += float64(countB) * float64(countB)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sharedTopics lists topics present in both vectors, ranked by the smaller
// of the two counts, then lexicographically.
func sharedTopics(a, b map[string]int) []string {
	type shared struct {
		topic string
		min   int
	}
	var all []shared
	for topic, countA := range a {
		if countB, ok := b[topic]; ok {
			m := countA
			if countB < m {
				m = countB
			}
			all = append(all, shared{topic: topic, min: m})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].min == all[j].min {
			return all[i].topic < all[j].topic
		}
		return all[i].min > all[j].min
	})
	topics := make([]string, len(all))
	for i, s := range all {
		topics[i] = s.topic
	}
	return topics
}
