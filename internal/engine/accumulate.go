package engine

import (
	"regexp"
	"strings"
	"time"

	"github.com/xaenox/vibez/internal/models"
)

const (
	minWindowDays     = 7
	maxWindowDays     = 3650
	defaultWindowDays = 30

	// Rolling conversational history bounds per channel. These thresholds
	// shape the inferred graph; see DESIGN.md before tuning them.
	historyMaxAge     = 2 * time.Hour
	historyMaxEntries = 40
	replyWindow       = 45 * time.Minute
)

// clampWindowDays bounds a requested window; non-positive means "all data"
// and is returned as zero.
func clampWindowDays(requested int) int {
	if requested <= 0 {
		return 0
	}
	if requested < minWindowDays {
		return minWindowDays
	}
	if requested > maxWindowDays {
		return maxWindowDays
	}
	return requested
}

// statAccumulator tracks the running per-key statistics built during the
// single accumulation scan.
type statAccumulator struct {
	key            string
	name           string
	count          int
	activeDays     map[string]struct{}
	firstTS        int64
	lastTS         int64
	relevanceSum   int
	relevanceCount int
	daily          map[string]int
}

func newStatAccumulator(key, name string) *statAccumulator {
	return &statAccumulator{
		key:        key,
		name:       name,
		activeDays: make(map[string]struct{}),
		daily:      make(map[string]int),
	}
}

func (a *statAccumulator) observe(rec models.Record) {
	day := models.DayKey(rec.Timestamp)
	a.count++
	a.activeDays[day] = struct{}{}
	a.daily[day]++
	if a.firstTS == 0 || rec.Timestamp < a.firstTS {
		a.firstTS = rec.Timestamp
	}
	if rec.Timestamp > a.lastTS {
		a.lastTS = rec.Timestamp
	}
	if rec.Classified {
		a.relevanceSum += rec.RelevanceScore
		a.relevanceCount++
	}
}

func (a *statAccumulator) avgRelevance() float64 {
	if a.relevanceCount == 0 {
		return 0
	}
	return float64(a.relevanceSum) / float64(a.relevanceCount)
}

// pairKey is a canonicalized unordered topic pair: A < B lexicographically.
type pairKey struct {
	A string
	B string
}

func canonicalPair(a, b string) pairKey {
	if a < b {
		return pairKey{A: a, B: b}
	}
	return pairKey{A: b, B: a}
}

type pairAccumulator struct {
	coMessages int
	lastTS     int64
	daily      map[string]int
}

// edgeKey is a directed user pair for the relationship graph.
type edgeKey struct {
	Source string
	Target string
}

type edgeCounters struct {
	sourceName string
	targetName string
	replies    int
	mentions   int
	dmSignals  int
	turns      int
}

type historyEntry struct {
	senderID     string
	senderName   string
	timestamp    int64
	endsQuestion bool
}

// accumulation is everything one chronological pass produces. It is built
// per query and discarded with the response.
type accumulation struct {
	totalMessages      int
	classifiedMessages int
	withTopicsMessages int

	daily           map[string]int
	dailyClassified map[string]int
	dailyWithTopics map[string]int
	weekday         [7]int
	hour            [24]int

	users    map[string]*statAccumulator
	channels map[string]*statAccumulator
	topics   map[string]*statAccumulator
	pairs    map[pairKey]*pairAccumulator

	edges           map[edgeKey]*edgeCounters
	userTopicCounts map[string]map[string]int

	earliestTS int64
	latestTS   int64
}

func newAccumulation() *accumulation {
	return &accumulation{
		daily:           make(map[string]int),
		dailyClassified: make(map[string]int),
		dailyWithTopics: make(map[string]int),
		users:           make(map[string]*statAccumulator),
		channels:        make(map[string]*statAccumulator),
		topics:          make(map[string]*statAccumulator),
		pairs:           make(map[pairKey]*pairAccumulator),
		edges:           make(map[edgeKey]*edgeCounters),
		userTopicCounts: make(map[string]map[string]int),
	}
}

// accumulate runs the single ordered scan over scoped records. Records must
// be sorted by timestamp ascending.
func accumulate(records []models.Record) *accumulation {
	acc := newAccumulation()
	histories := make(map[string][]historyEntry)
	patterns := make(map[string][]*regexp.Regexp)

	for _, rec := range records {
		acc.observeMessage(rec)
		acc.observeConversation(rec, histories, patterns)
	}
	return acc
}

func (acc *accumulation) observeMessage(rec models.Record) {
	day := models.DayKey(rec.Timestamp)
	ts := rec.Time()

	acc.totalMessages++
	acc.daily[day]++
	acc.weekday[int(ts.Weekday())]++
	acc.hour[ts.Hour()]++

	if acc.earliestTS == 0 || rec.Timestamp < acc.earliestTS {
		acc.earliestTS = rec.Timestamp
	}
	if rec.Timestamp > acc.latestTS {
		acc.latestTS = rec.Timestamp
	}

	if rec.Classified {
		acc.classifiedMessages++
		acc.dailyClassified[day]++
	}

	user, ok := acc.users[rec.SenderID]
	if !ok {
		user = newStatAccumulator(rec.SenderID, rec.SenderName)
		acc.users[rec.SenderID] = user
	}
	user.observe(rec)

	channel, ok := acc.channels[rec.RoomID]
	if !ok {
		channel = newStatAccumulator(rec.RoomID, rec.RoomName)
		acc.channels[rec.RoomID] = channel
	}
	channel.observe(rec)

	distinct := distinctTopics(rec.Topics)
	if len(distinct) > 0 {
		acc.withTopicsMessages++
		acc.dailyWithTopics[day]++
	}
	for _, topic := range distinct {
		ta, ok := acc.topics[topic]
		if !ok {
			ta = newStatAccumulator(topic, topic)
			acc.topics[topic] = ta
		}
		ta.observe(rec)

		counts, ok := acc.userTopicCounts[rec.SenderID]
		if !ok {
			counts = make(map[string]int)
			acc.userTopicCounts[rec.SenderID] = counts
		}
		counts[topic]++
	}

	if len(distinct) >= 2 {
		for i := 0; i < len(distinct); i++ {
			for j := i + 1; j < len(distinct); j++ {
				key := canonicalPair(distinct[i], distinct[j])
				pair, ok := acc.pairs[key]
				if !ok {
					pair = &pairAccumulator{daily: make(map[string]int)}
					acc.pairs[key] = pair
				}
				pair.coMessages++
				pair.daily[day]++
				if rec.Timestamp > pair.lastTS {
					pair.lastTS = rec.Timestamp
				}
			}
		}
	}
}

// observeConversation infers reply/turn/mention/DM signals from the rolling
// per-channel history, then appends the current message to it.
func (acc *accumulation) observeConversation(rec models.Record, histories map[string][]historyEntry, patterns map[string][]*regexp.Regexp) {
	history := pruneHistory(histories[rec.RoomID], rec.Timestamp)

	mentionTargets := acc.detectMentions(rec, history, patterns)
	replyTarget := findReplyTarget(rec, history)

	for _, target := range mentionTargets {
		acc.addEdge(rec, target, func(c *edgeCounters) { c.mentions++ })
	}

	if replyTarget != nil {
		isReply := strings.Contains(rec.Body, "?") ||
			lexReplySignal.Matches(rec.Body) ||
			replyTarget.endsQuestion
		if isReply {
			acc.addEdge(rec, *replyTarget, func(c *edgeCounters) { c.replies++ })
		} else {
			acc.addEdge(rec, *replyTarget, func(c *edgeCounters) { c.turns++ })
		}
	}

	if lexDMSignal.Matches(rec.Body) {
		if len(mentionTargets) > 0 {
			for _, target := range mentionTargets {
				acc.addEdge(rec, target, func(c *edgeCounters) { c.dmSignals++ })
			}
		} else if replyTarget != nil {
			acc.addEdge(rec, *replyTarget, func(c *edgeCounters) { c.dmSignals++ })
		}
	}

	history = append(history, historyEntry{
		senderID:     rec.SenderID,
		senderName:   rec.SenderName,
		timestamp:    rec.Timestamp,
		endsQuestion: strings.HasSuffix(strings.TrimSpace(rec.Body), "?"),
	})
	if len(history) > historyMaxEntries {
		history = history[len(history)-historyMaxEntries:]
	}
	histories[rec.RoomID] = history
}

func (acc *accumulation) detectMentions(rec models.Record, history []historyEntry, patterns map[string][]*regexp.Regexp) []historyEntry {
	var targets []historyEntry
	seen := make(map[string]struct{})
	for _, entry := range history {
		if entry.senderID == rec.SenderID {
			continue
		}
		if _, dup := seen[entry.senderID]; dup {
			continue
		}
		for _, pattern := range namePatterns(entry.senderName, patterns) {
			if pattern.MatchString(rec.Body) {
				seen[entry.senderID] = struct{}{}
				targets = append(targets, entry)
				break
			}
		}
	}
	return targets
}

func (acc *accumulation) addEdge(rec models.Record, target historyEntry, bump func(*edgeCounters)) {
	if rec.SenderID == target.senderID {
		return
	}
	key := edgeKey{Source: rec.SenderID, Target: target.senderID}
	counters, ok := acc.edges[key]
	if !ok {
		counters = &edgeCounters{sourceName: rec.SenderName, targetName: target.senderName}
		acc.edges[key] = counters
	}
	bump(counters)
}

// pruneHistory drops entries older than the rolling window relative to ts.
func pruneHistory(history []historyEntry, ts int64) []historyEntry {
	cutoff := ts - historyMaxAge.Milliseconds()
	start := 0
	for start < len(history) && history[start].timestamp < cutoff {
		start++
	}
	return history[start:]
}

// findReplyTarget returns the nearest prior message from a different sender
// within the reply window, or nil.
func findReplyTarget(rec models.Record, history []historyEntry) *historyEntry {
	limit := replyWindow.Milliseconds()
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if entry.senderID == rec.SenderID {
			continue
		}
		if rec.Timestamp-entry.timestamp > limit {
			return nil
		}
		return &entry
	}
	return nil
}

// namePatterns compiles (and caches) whole-word matchers for a participant
// name: the full name, and its first word when long enough to be unambiguous.
func namePatterns(name string, cache map[string][]*regexp.Regexp) []*regexp.Regexp {
	if cached, ok := cache[name]; ok {
		return cached
	}
	var compiled []*regexp.Regexp
	trimmed := strings.TrimSpace(name)
	if trimmed != "" {
		compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(trimmed)+`\b`))
		if first, _, found := strings.Cut(trimmed, " "); found && len(first) >= 3 {
			compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(first)+`\b`))
		}
	}
	cache[name] = compiled
	return compiled
}

func distinctTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	return out
}
