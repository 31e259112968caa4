package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/models"
	"github.com/xaenox/vibez/internal/semantic"
)

const (
	arcSeedMinBodyLen  = 24
	arcSeedFloor       = 180
	arcSeedCeil        = 900
	arcSeedsPerDay     = 6
	arcNeighborK       = 42
	arcMinSize         = 3
	arcMaxSamples      = 4
	arcMaxParticipants = 5
	arcReportCap       = 12
	arcTitleTokens     = 3
	arcTitleMinToken   = 4
	arcFallbackTitle   = 44
	momentumThreshold  = 2
)

// NeighborSource is the slice of the vector index the clusterer needs. A nil
// source disables semantic analytics without failing the report.
type NeighborSource interface {
	NeighborsOf(ctx context.Context, messageID string, k int, since int64) ([]semantic.Neighbor, error)
}

// arcDistanceThreshold widens as the window grows: older material drifts, so
// long windows need a looser notion of "same thread".
func arcDistanceThreshold(windowDays int) float64 {
	switch {
	case windowDays > 0 && windowDays <= 30:
		return 0.29
	case windowDays > 0 && windowDays <= 90:
		return 0.32
	default:
		return 0.34
	}
}

func arcSeedLimit(windowDays int) int {
	n := windowDays * arcSeedsPerDay
	if n < arcSeedFloor {
		return arcSeedFloor
	}
	if n > arcSeedCeil {
		return arcSeedCeil
	}
	return n
}

type arcMember struct {
	messageID  string
	roomName   string
	senderName string
	body       string
	timestamp  int64
	distance   float64
}

// buildArcs runs greedy non-overlapping clustering over the scoped window.
// Neighbors outside the scoped record set are ignored, which enforces both
// the room scope and the window in one place.
func buildArcs(ctx context.Context, records []models.Record, source NeighborSource, windowDays int, since int64, now time.Time, logger *zap.Logger) SemanticAnalytics {
	if source == nil {
		return SemanticAnalytics{Enabled: false, Status: "vector index not configured"}
	}

	allowed := make(map[string]models.Record, len(records))
	for _, rec := range records {
		allowed[rec.ID] = rec
	}

	seeds := selectSeeds(records, arcSeedLimit(windowDays))
	threshold := arcDistanceThreshold(windowDays)
	consumed := make(map[string]struct{})

	var arcs []SemanticArc
	for _, seed := range seeds {
		if _, done := consumed[seed.ID]; done {
			continue
		}
		neighbors, err := source.NeighborsOf(ctx, seed.ID, arcNeighborK, since)
		if err != nil {
			// A single bad seed must not sink the whole report.
			logger.Warn("Neighbor lookup failed",
				zap.Error(err),
				zap.String("message_id", seed.ID))
			continue
		}

		members := []arcMember{{
			messageID:  seed.ID,
			roomName:   seed.RoomName,
			senderName: seed.SenderName,
			body:       seed.Body,
			timestamp:  seed.Timestamp,
			distance:   0,
		}}
		for _, neighbor := range neighbors {
			if neighbor.Distance > threshold {
				break
			}
			if _, done := consumed[neighbor.MessageID]; done {
				continue
			}
			rec, ok := allowed[neighbor.MessageID]
			if !ok {
				continue
			}
			members = append(members, arcMember{
				messageID:  rec.ID,
				roomName:   rec.RoomName,
				senderName: rec.SenderName,
				body:       rec.Body,
				timestamp:  rec.Timestamp,
				distance:   neighbor.Distance,
			})
		}

		if len(members) < arcMinSize {
			continue
		}
		for _, member := range members {
			consumed[member.messageID] = struct{}{}
		}
		arcs = append(arcs, assembleArc(members, now))
	}

	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].MessageCount == arcs[j].MessageCount {
			return arcs[i].Coherence > arcs[j].Coherence
		}
		return arcs[i].MessageCount > arcs[j].MessageCount
	})
	if len(arcs) > arcReportCap {
		arcs = arcs[:arcReportCap]
	}
	return SemanticAnalytics{Enabled: true, Status: "ok", Arcs: arcs}
}

// selectSeeds ranks eligible messages by relevance, then recency.
func selectSeeds(records []models.Record, limit int) []models.Record {
	var seeds []models.Record
	for _, rec := range records {
		if len(strings.TrimSpace(rec.Body)) >= arcSeedMinBodyLen {
			seeds = append(seeds, rec)
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].RelevanceScore == seeds[j].RelevanceScore {
			return seeds[i].Timestamp > seeds[j].Timestamp
		}
		return seeds[i].RelevanceScore > seeds[j].RelevanceScore
	})
	if len(seeds) > limit {
		seeds = seeds[:limit]
	}
	return seeds
}

func assembleArc(members []arcMember, now time.Time) SemanticArc {
	sort.Slice(members, func(i, j int) bool { return members[i].timestamp > members[j].timestamp })

	var coherenceSum float64
	var firstTS, lastTS int64
	participants := make(map[string]int)
	channels := make(map[string]struct{})
	for _, member := range members {
		coherenceSum += 1 - member.distance
		if firstTS == 0 || member.timestamp < firstTS {
			firstTS = member.timestamp
		}
		if member.timestamp > lastTS {
			lastTS = member.timestamp
		}
		if member.senderName != "" {
			participants[member.senderName]++
		}
		if member.roomName != "" {
			channels[member.roomName] = struct{}{}
		}
	}

	samples := make([]MessageSample, 0, arcMaxSamples)
	for _, member := range members {
		if len(samples) == arcMaxSamples {
			break
		}
		samples = append(samples, MessageSample{
			MessageID:  member.messageID,
			RoomName:   member.roomName,
			SenderName: member.senderName,
			Body:       excerpt(member.body, excerptRunes),
			Timestamp:  member.timestamp,
		})
	}

	return SemanticArc{
		Title:        arcTitle(members),
		MessageCount: len(members),
		Coherence:    coherenceSum / float64(len(members)),
		Momentum:     arcMomentum(members, now),
		Participants: topParticipants(participants, arcMaxParticipants),
		Channels:     sortedKeys(channels),
		FirstSeen:    models.DayKey(firstTS),
		LastSeen:     models.DayKey(lastTS),
		Samples:      samples,
	}
}

// arcMomentum compares member volume in the trailing 24 hours against the
// 24 hours before that.
func arcMomentum(members []arcMember, now time.Time) string {
	dayAgo := now.Add(-24 * time.Hour).UnixMilli()
	twoDaysAgo := now.Add(-48 * time.Hour).UnixMilli()
	last24, prev24 := 0, 0
	for _, member := range members {
		switch {
		case member.timestamp >= dayAgo:
			last24++
		case member.timestamp >= twoDaysAgo:
			prev24++
		}
	}
	switch {
	case last24 >= prev24+momentumThreshold:
		return "rising"
	case prev24 >= last24+momentumThreshold:
		return "cooling"
	default:
		return "steady"
	}
}

// arcTitle picks the most frequent meaningful tokens across member bodies.
// When nothing qualifies, it falls back to an excerpt of the newest member.
func arcTitle(members []arcMember) string {
	counts := make(map[string]int)
	for _, member := range members {
		for _, token := range semantic.Tokenize(member.body) {
			if len(token) < arcTitleMinToken {
				continue
			}
			if _, stop := titleStopwords[token]; stop {
				continue
			}
			counts[token]++
		}
	}

	type tokenCount struct {
		token string
		count int
	}
	var ranked []tokenCount
	for token, count := range counts {
		ranked = append(ranked, tokenCount{token: token, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count == ranked[j].count {
			return ranked[i].token < ranked[j].token
		}
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > arcTitleTokens {
		ranked = ranked[:arcTitleTokens]
	}

	if len(ranked) == 0 {
		return excerpt(members[0].body, arcFallbackTitle)
	}
	tokens := make([]string, len(ranked))
	for i, tc := range ranked {
		tokens[i] = tc.token
	}
	return strings.Join(tokens, " / ")
}

var titleStopwords = func() map[string]struct{} {
	words := []string{
		"this", "that", "with", "have", "from", "about", "what", "when",
		"your", "just", "like", "will", "would", "could", "should",
		"there", "their", "them", "they", "been", "were", "some", "more",
		"very", "really", "going", "think", "know", "want", "also",
		"because", "where", "which", "than", "then", "these", "those",
		"here", "over", "into", "only", "much", "make", "made", "well",
		"good", "time", "people", "does", "doing", "done", "anyone",
		"someone", "something", "anything", "thing", "things", "yeah",
	}
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}()

// topParticipants ranks senders by how many arc members they wrote, capped.
func topParticipants(counts map[string]int, limit int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] == counts[names[j]] {
			return names[i] < names[j]
		}
		return counts[names[i]] > counts[names[j]]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
