package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/vibez/internal/models"
)

const (
	defaultLookbackDays = 45
	defaultCandidates   = 600
	minCandidates       = 50
	maxCandidates       = 2000
	sectionCap          = 20
	maxReasons          = 4
	excerptRunes        = 220
)

// Axis weights of the priority blend. They are tuned as a set; changing one
// without rebalancing the rest shifts every section threshold.
const (
	wUrgency              = 0.16
	wNeed                 = 0.14
	wAging                = 0.08
	wLeverage             = 0.11
	wStrategicFit         = 0.11
	wComparativeAdvantage = 0.09
	wEffortToValue        = 0.08
	wDependencyBlocker    = 0.08
	wRelationshipStakes   = 0.05
	wRiskIfIgnored        = 0.06
	wRecurrenceSignal     = 0.08
	wConfidence           = 0.06
)

// clampLookbackDays bounds the dashboard lookback, defaulting when unset.
func clampLookbackDays(requested int) int {
	if requested <= 0 {
		return defaultLookbackDays
	}
	if requested < minWindowDays {
		return minWindowDays
	}
	if requested > maxWindowDays {
		return maxWindowDays
	}
	return requested
}

func clampCandidates(requested int) int {
	if requested <= 0 {
		return defaultCandidates
	}
	if requested < minCandidates {
		return minCandidates
	}
	if requested > maxCandidates {
		return maxCandidates
	}
	return requested
}

// scoringContext carries the window-level aggregates every candidate scores
// against: who talks how much, and which topics and themes keep coming back.
type scoringContext struct {
	themeCounts   map[string]int
	topicCounts   map[string]int
	senderVolume  map[string]int
	channelVolume map[string]int
	cfg           models.ValueConfig
	now           time.Time
}

func newScoringContext(records []models.Record, cfg models.ValueConfig, now time.Time) *scoringContext {
	sc := &scoringContext{
		themeCounts:   make(map[string]int),
		topicCounts:   make(map[string]int),
		senderVolume:  make(map[string]int),
		channelVolume: make(map[string]int),
		cfg:           cfg,
		now:           now,
	}
	for _, rec := range records {
		sc.senderVolume[rec.SenderID]++
		sc.channelVolume[rec.RoomID]++
		for _, theme := range distinctTopics(rec.ContributionThemes) {
			sc.themeCounts[strings.ToLower(theme)]++
		}
		for _, topic := range distinctTopics(rec.Topics) {
			sc.topicCounts[strings.ToLower(topic)]++
		}
	}
	return sc
}

// isCandidate reports whether a record enters the scoring pool.
func isCandidate(rec models.Record) bool {
	return rec.ContributionFlag ||
		rec.AlertLevel == models.AlertHot ||
		strings.TrimSpace(rec.ContributionHint) != ""
}

// selectCandidates picks the newest candidates up to the cap. Records arrive
// sorted ascending, so the tail of the filtered slice is the newest.
func selectCandidates(records []models.Record, limit int) []models.Record {
	var pool []models.Record
	for _, rec := range records {
		if isCandidate(rec) {
			pool = append(pool, rec)
		}
	}
	if len(pool) > limit {
		pool = pool[len(pool)-limit:]
	}
	return pool
}

// buildDashboard scores the candidate pool and routes opportunities into the
// dashboard sections.
func buildDashboard(records []models.Record, cfg models.ValueConfig, lookbackDays, candidateLimit int, now time.Time) ContributionDashboard {
	sc := newScoringContext(records, cfg, now)
	pool := selectCandidates(records, clampCandidates(candidateLimit))

	dashboard := ContributionDashboard{
		GeneratedAt:    now.UTC().Format(time.RFC3339),
		LookbackDays:   lookbackDays,
		CandidateCount: len(pool),
		AxisMeans:      make(map[string]float64),
		NeedTypeCounts: make(map[string]int),
	}

	opportunities := make([]Opportunity, 0, len(pool))
	var sums Axes
	for _, rec := range pool {
		opp := scoreRecord(rec, sc)
		opportunities = append(opportunities, opp)
		dashboard.NeedTypeCounts[opp.NeedType]++
		addAxes(&sums, opp.Axes)
	}

	if len(opportunities) > 0 {
		n := float64(len(opportunities))
		dashboard.AxisMeans = map[string]float64{
			"urgency":               sums.Urgency / n,
			"need":                  sums.Need / n,
			"aging":                 sums.Aging / n,
			"leverage":              sums.Leverage / n,
			"strategic_fit":         sums.StrategicFit / n,
			"comparative_advantage": sums.ComparativeAdvantage / n,
			"effort_to_value":       sums.EffortToValue / n,
			"dependency_blocker":    sums.DependencyBlocker / n,
			"relationship_stakes":   sums.RelationshipStakes / n,
			"risk_if_ignored":       sums.RiskIfIgnored / n,
			"recurrence_signal":     sums.RecurrenceSignal / n,
			"confidence":            sums.Confidence / n,
		}
	}

	dashboard.ActNow = takeSection(opportunities, byPriority, func(o Opportunity) bool {
		return o.Priority >= 68 &&
			(o.Axes.Urgency >= 6 || o.Axes.DependencyBlocker >= 6 ||
				o.Axes.RiskIfIgnored >= 6 || o.Axes.Need >= 7)
	})
	dashboard.HighLeverage = takeSection(opportunities, byPriority, func(o Opportunity) bool {
		return o.Axes.Leverage >= 7 || o.Axes.RecurrenceSignal >= 7
	})
	dashboard.AgingRisk = takeSection(opportunities, byAxis(func(a Axes) float64 { return a.Aging }), func(o Opportunity) bool {
		return o.Axes.Aging >= 7 && o.Axes.Need >= 5
	})
	dashboard.Blocked = takeSection(opportunities, byAxis(func(a Axes) float64 { return a.DependencyBlocker }), func(o Opportunity) bool {
		return o.Axes.DependencyBlocker >= 7
	})
	dashboard.Relationship = takeSection(opportunities, byPriority, func(o Opportunity) bool {
		return o.Axes.RelationshipStakes >= 7 && o.Axes.Need >= 5
	})
	dashboard.QuickWins = takeSection(opportunities, byPriority, func(o Opportunity) bool {
		return o.Axes.EffortToValue >= 7 && o.Axes.Need >= 5
	})

	dashboard.RecurringThemes = topThemes(sc.themeCounts, 8)
	return dashboard
}

// scoreRecord computes the twelve axes and the weighted priority for one
// candidate.
func scoreRecord(rec models.Record, sc *scoringContext) Opportunity {
	body := rec.Body
	hot := rec.AlertLevel == models.AlertHot
	digest := rec.AlertLevel == models.AlertDigest
	hint := strings.TrimSpace(rec.ContributionHint) != ""
	rel := float64(rec.RelevanceScore)
	ageHours := sc.now.Sub(rec.Time()).Hours()

	maxThemePop := maxPopularity(sc.themeCounts, rec.ContributionThemes)
	maxTopicPop := maxPopularity(sc.topicCounts, rec.Topics)

	var axes Axes

	axes.Urgency = clampAxis(2.2*float64(lexUrgency.Hits(body)) +
		boolAxis(hot, 4) + boolAxis(digest, 1.5) +
		boolAxis(ageHours < 24, 1.5) + 0.2*rel)

	axes.Need = clampAxis(2.2*float64(lexNeed.Hits(body)) +
		boolAxis(rec.ContributionFlag, 2.5) + boolAxis(hint, 1.5) +
		boolAxis(strings.Contains(body, "?"), 1.0) + 0.2*rel)

	axes.Aging = agingBucket(ageHours)

	axes.Leverage = clampAxis(2.0*float64(lexGroupImpact.Hits(body)) +
		1.6*math.Log1p(float64(maxThemePop)) +
		0.8*math.Log1p(float64(sc.channelVolume[rec.RoomID])))

	topicsAndThemes := append(append([]string{}, rec.Topics...), rec.ContributionThemes...)
	axes.StrategicFit = clampAxis(3.2*float64(overlapCount(topicsAndThemes, sc.cfg.Topics, 3)) + 0.3*rel)

	allLabels := append(append([]string{}, topicsAndThemes...), rec.Entities...)
	axes.ComparativeAdvantage = clampAxis(2.8*float64(overlapCount(allLabels, sc.cfg.Projects, 3)) +
		1.2*float64(lexCreation.Hits(body)) + boolAxis(hint, 1.0))

	effortPenalty := 1.8*float64(lexHighEffort.Hits(body)) +
		boolAxis(len(body) > 600, 1.5) + boolAxis(len(body) > 1200, 1.5)
	axes.EffortToValue = clampAxis(0.45*axes.Urgency + 0.30*axes.Need + 0.25*axes.StrategicFit -
		effortPenalty + 1.5*float64(lexQuickWin.Hits(body)))

	axes.DependencyBlocker = clampAxis(2.8*float64(lexDependency.Hits(body)) + boolAxis(hot, 1.0))

	axes.RelationshipStakes = clampAxis(2.2*float64(lexSupport.Hits(body)) +
		boolAxis(strings.Contains(body, "@"), 1.5) +
		1.0*math.Log1p(float64(sc.senderVolume[rec.SenderID])))

	axes.RiskIfIgnored = clampAxis(2.6*float64(lexRisk.Hits(body)) +
		boolAxis(hot, 2.0) + boolAxis(axes.Aging >= 7, 1.5))

	axes.RecurrenceSignal = clampAxis(2.0*math.Log1p(float64(maxThemePop)) +
		1.2*math.Log1p(float64(maxTopicPop)))

	axes.Confidence = clampAxis(boolAxis(rec.Classified, 2.0) + 0.4*rel +
		0.5*float64(len(distinctTopics(rec.Topics))) + boolAxis(rec.ContributionFlag, 1.5))

	return Opportunity{
		MessageID:  rec.ID,
		RoomID:     rec.RoomID,
		RoomName:   rec.RoomName,
		SenderName: rec.SenderName,
		Excerpt:    excerpt(body, excerptRunes),
		Timestamp:  rec.Timestamp,
		NeedType:   needType(body),
		Priority:   priorityScore(axes),
		Axes:       axes,
		Reasons:    buildReasons(rec, axes, hot),
	}
}

// agingBucket maps a message age in hours to its aging axis. The curve rises
// through the first two weeks and then eases off: very old items usually had
// their moment.
func agingBucket(hours float64) float64 {
	switch {
	case hours < 12:
		return 1
	case hours < 24:
		return 3
	case hours < 72:
		return 6
	case hours < 168:
		return 8
	case hours < 336:
		return 9
	default:
		return 7
	}
}

func priorityScore(a Axes) float64 {
	sum := a.Urgency*wUrgency +
		a.Need*wNeed +
		a.Aging*wAging +
		a.Leverage*wLeverage +
		a.StrategicFit*wStrategicFit +
		a.ComparativeAdvantage*wComparativeAdvantage +
		a.EffortToValue*wEffortToValue +
		a.DependencyBlocker*wDependencyBlocker +
		a.RelationshipStakes*wRelationshipStakes +
		a.RiskIfIgnored*wRiskIfIgnored +
		a.RecurrenceSignal*wRecurrenceSignal +
		a.Confidence*wConfidence
	score := math.Round(sum*10*100) / 100
	if score > 100 {
		return 100
	}
	return score
}

// needType labels the dominant kind of ask in the body. Ties resolve in
// fixed order so the label is deterministic.
func needType(body string) string {
	ordered := []struct {
		label string
		lex   Lexicon
	}{
		{"decision", lexDecision},
		{"coordination", lexCoordination},
		{"creation", lexCreation},
		{"support", lexSupport},
	}
	best := "information"
	bestHits := 0
	for _, entry := range ordered {
		if hits := entry.lex.Hits(body); hits > bestHits {
			best = entry.label
			bestHits = hits
		}
	}
	return best
}

func buildReasons(rec models.Record, axes Axes, hot bool) []string {
	var reasons []string
	add := func(cond bool, reason string) {
		if cond && len(reasons) < maxReasons {
			reasons = append(reasons, reason)
		}
	}
	add(hot, "flagged hot by the classifier")
	add(axes.Urgency >= 6, "urgent language in the message")
	add(axes.DependencyBlocker >= 6, "someone is blocked on this")
	add(axes.RiskIfIgnored >= 6, "carries risk if left alone")
	add(axes.Need >= 6, "explicit ask for help")
	add(axes.StrategicFit >= 6, "matches configured focus topics")
	add(axes.RecurrenceSignal >= 6, "theme keeps recurring")
	add(axes.EffortToValue >= 7, "likely a quick win")
	add(axes.Aging >= 7, "has been waiting a while")
	add(rec.ContributionFlag, "classifier marked a contribution opening")
	return reasons
}

type lessFunc func(a, b Opportunity) bool

func byPriority(a, b Opportunity) bool {
	if a.Priority == b.Priority {
		return a.Timestamp > b.Timestamp
	}
	return a.Priority > b.Priority
}

// byAxis sorts on a single axis with recency as the tiebreak.
func byAxis(axis func(Axes) float64) lessFunc {
	return func(a, b Opportunity) bool {
		av, bv := axis(a.Axes), axis(b.Axes)
		if av == bv {
			return a.Timestamp > b.Timestamp
		}
		return av > bv
	}
}

func takeSection(opportunities []Opportunity, less lessFunc, include func(Opportunity) bool) []Opportunity {
	var section []Opportunity
	for _, opp := range opportunities {
		if include(opp) {
			section = append(section, opp)
		}
	}
	sort.Slice(section, func(i, j int) bool { return less(section[i], section[j]) })
	if len(section) > sectionCap {
		section = section[:sectionCap]
	}
	return section
}

func topThemes(counts map[string]int, limit int) []string {
	type themeCount struct {
		theme string
		count int
	}
	var all []themeCount
	for theme, count := range counts {
		if count >= 2 {
			all = append(all, themeCount{theme: theme, count: count})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count == all[j].count {
			return all[i].theme < all[j].theme
		}
		return all[i].count > all[j].count
	})
	if len(all) > limit {
		all = all[:limit]
	}
	themes := make([]string, len(all))
	for i, tc := range all {
		themes[i] = tc.theme
	}
	return themes
}

func maxPopularity(counts map[string]int, labels []string) int {
	best := 0
	for _, label := range labels {
		if count := counts[strings.ToLower(strings.TrimSpace(label))]; count > best {
			best = count
		}
	}
	return best
}

// overlapCount counts case-insensitive matches between labels and the
// configured set, capped.
func overlapCount(labels, configured []string, limit int) int {
	set := make(map[string]struct{}, len(configured))
	for _, c := range configured {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	seen := make(map[string]struct{})
	count := 0
	for _, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if _, ok := set[key]; ok {
			seen[key] = struct{}{}
			count++
			if count >= limit {
				break
			}
		}
	}
	return count
}

func clampAxis(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return math.Round(v*100) / 100
}

func boolAxis(cond bool, value float64) float64 {
	if cond {
		return value
	}
	return 0
}

func addAxes(sum *Axes, a Axes) {
	sum.Urgency += a.Urgency
	sum.Need += a.Need
	sum.Aging += a.Aging
	sum.Leverage += a.Leverage
	sum.StrategicFit += a.StrategicFit
	sum.ComparativeAdvantage += a.ComparativeAdvantage
	sum.EffortToValue += a.EffortToValue
	sum.DependencyBlocker += a.DependencyBlocker
	sum.RelationshipStakes += a.RelationshipStakes
	sum.RiskIfIgnored += a.RiskIfIgnored
	sum.RecurrenceSignal += a.RecurrenceSignal
	sum.Confidence += a.Confidence
}

// excerpt truncates at a rune boundary with an ellipsis.
func excerpt(body string, limit int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
