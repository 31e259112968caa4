package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/models"
)

func TestClampLookbackDays(t *testing.T) {
	assert.Equal(t, defaultLookbackDays, clampLookbackDays(0))
	assert.Equal(t, 7, clampLookbackDays(2))
	assert.Equal(t, 90, clampLookbackDays(90))
	assert.Equal(t, 3650, clampLookbackDays(9999))
}

func TestClampCandidates(t *testing.T) {
	assert.Equal(t, defaultCandidates, clampCandidates(0))
	assert.Equal(t, minCandidates, clampCandidates(10))
	assert.Equal(t, maxCandidates, clampCandidates(5000))
}

func TestIsCandidate(t *testing.T) {
	rec := models.Record{}
	assert.False(t, isCandidate(rec))

	rec.ContributionFlag = true
	assert.True(t, isCandidate(rec))

	rec = models.Record{AlertLevel: models.AlertHot}
	assert.True(t, isCandidate(rec))

	rec = models.Record{ContributionHint: "review the draft"}
	assert.True(t, isCandidate(rec))
}

func TestSelectCandidatesKeepsNewest(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	var records []models.Record
	for i := 0; i < 60; i++ {
		rec := msgAt(fmt.Sprintf("m%d", i), "general", "u1", "Alice", "body", base.Add(time.Duration(i)*time.Minute))
		rec.ContributionFlag = true
		records = append(records, rec)
	}

	pool := selectCandidates(records, 50)
	require.Len(t, pool, 50)
	assert.Equal(t, "m10", pool[0].ID)
	assert.Equal(t, "m59", pool[len(pool)-1].ID)
}

func TestAgingBucket(t *testing.T) {
	assert.Equal(t, 1.0, agingBucket(2))
	assert.Equal(t, 3.0, agingBucket(18))
	assert.Equal(t, 6.0, agingBucket(48))
	assert.Equal(t, 8.0, agingBucket(100))
	assert.Equal(t, 9.0, agingBucket(200))
	assert.Equal(t, 7.0, agingBucket(800))
}

func TestNeedType(t *testing.T) {
	assert.Equal(t, "decision", needType("should we pick between the two options?"))
	assert.Equal(t, "coordination", needType("let's schedule a meeting to plan logistics"))
	assert.Equal(t, "creation", needType("building a prototype this week"))
	assert.Equal(t, "support", needType("congrats on the launch, amazing work"))
	assert.Equal(t, "information", needType("what time is it"))
}

func TestUrgentHotMessageScoresActNow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	rec := msgAt("urgent-1", "general", "u1", "Alice Smith",
		"ASAP folks, we urgently need help before the deadline: the deploy pipeline is broken and risky, everyone is blocked on the migration review and waiting on @alex. Can anyone help?",
		now.Add(-2*time.Hour))
	rec.Classified = true
	rec.RelevanceScore = 9
	rec.Topics = []string{"orchestration", "repos"}
	rec.Entities = []string{"analytics-pipeline", "core-platform"}
	rec.ContributionFlag = true
	rec.ContributionThemes = []string{"deploy-review"}
	rec.ContributionHint = "Review the migration plan"
	rec.AlertLevel = models.AlertHot

	dashboard := buildDashboard([]models.Record{rec}, models.DefaultValueConfig(), 45, 0, now)

	assert.Equal(t, 1, dashboard.CandidateCount)
	require.Len(t, dashboard.ActNow, 1)
	opp := dashboard.ActNow[0]
	assert.Equal(t, "urgent-1", opp.MessageID)
	assert.GreaterOrEqual(t, opp.Axes.Urgency, 7.0)
	assert.GreaterOrEqual(t, opp.Priority, 68.0)
	assert.NotEmpty(t, opp.Reasons)
	assert.LessOrEqual(t, len(opp.Reasons), maxReasons)
	assert.Equal(t, 1, dashboard.NeedTypeCounts[opp.NeedType])
}

func TestQuietMessageStaysOutOfActNow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	rec := msgAt("calm-1", "general", "u1", "Alice Smith",
		"sharing some photos from the weekend hike",
		now.Add(-3*time.Hour))
	rec.Classified = true
	rec.RelevanceScore = 2
	rec.ContributionHint = "maybe share your own photos"

	dashboard := buildDashboard([]models.Record{rec}, models.DefaultValueConfig(), 45, 0, now)
	assert.Equal(t, 1, dashboard.CandidateCount)
	assert.Empty(t, dashboard.ActNow)
}

func TestBlockedSectionSortsByOwnAxis(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	heavy := msgAt("b1", "general", "u1", "Alice",
		"fully blocked on the review, blocked by infra, waiting on access, stuck until tomorrow",
		now.Add(-2*time.Hour))
	heavy.ContributionFlag = true

	light := msgAt("b2", "general", "u2", "Bob",
		"we are blocked on the vendor, waiting for their reply, can't proceed until then, this is holding us up",
		now.Add(-1*time.Hour))
	light.ContributionFlag = true
	light.AlertLevel = models.AlertHot

	dashboard := buildDashboard([]models.Record{heavy, light}, models.DefaultValueConfig(), 45, 0, now)
	require.NotEmpty(t, dashboard.Blocked)
	for i := 1; i < len(dashboard.Blocked); i++ {
		assert.GreaterOrEqual(t,
			dashboard.Blocked[i-1].Axes.DependencyBlocker,
			dashboard.Blocked[i].Axes.DependencyBlocker)
	}
}

func TestSectionCap(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	var records []models.Record
	for i := 0; i < 30; i++ {
		rec := msgAt(fmt.Sprintf("q%d", i), "general", "u1", "Alice",
			"quick fix needed: one-liner change, can anyone help with this small tweak?",
			now.Add(-time.Duration(i+1)*time.Minute))
		rec.ContributionFlag = true
		records = append(records, rec)
	}

	dashboard := buildDashboard(records, models.DefaultValueConfig(), 45, 0, now)
	assert.LessOrEqual(t, len(dashboard.QuickWins), sectionCap)
}

func TestAxesAndPriorityStayBounded(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	stuffed := strings.Repeat(
		"urgent asap emergency deadline everyone blocked waiting stuck need help please review broken failing risk quick win small tweak build create draft decide choose schedule meeting coordinate thanks congrats @alex? ",
		10)

	extreme := msgAt("x1", "general", "u1", "Alice", stuffed, now.Add(-300*24*time.Hour))
	extreme.Classified = true
	extreme.RelevanceScore = 10
	extreme.Topics = []string{"orchestration", "repos", "productivity", "business-ai", "practical-tools"}
	extreme.Entities = []string{"analytics-pipeline", "core-platform"}
	extreme.ContributionFlag = true
	extreme.ContributionThemes = []string{"deploy-review", "migrations"}
	extreme.ContributionHint = "do everything at once"
	extreme.AlertLevel = models.AlertHot

	bare := msgAt("x2", "general", "u2", "Bob", "", now)
	bare.ContributionHint = "ping"

	long := msgAt("x3", "general", "u3", "Cleo", strings.Repeat("z", 2000), now.Add(-6*time.Hour))
	long.ContributionFlag = true

	records := []models.Record{extreme, bare, long}
	// Pile on volume so the log-dampened popularity terms grow.
	for i := 0; i < 40; i++ {
		rec := msgAt(fmt.Sprintf("v%d", i), "general", "u1", "Alice", stuffed, now.Add(-time.Duration(i)*time.Hour))
		rec.ContributionFlag = true
		rec.Topics = []string{"orchestration"}
		rec.ContributionThemes = []string{"deploy-review"}
		records = append(records, rec)
	}

	sc := newScoringContext(records, models.DefaultValueConfig(), now)
	for _, rec := range records {
		opp := scoreRecord(rec, sc)
		axes := map[string]float64{
			"urgency":               opp.Axes.Urgency,
			"need":                  opp.Axes.Need,
			"aging":                 opp.Axes.Aging,
			"leverage":              opp.Axes.Leverage,
			"strategic_fit":         opp.Axes.StrategicFit,
			"comparative_advantage": opp.Axes.ComparativeAdvantage,
			"effort_to_value":       opp.Axes.EffortToValue,
			"dependency_blocker":    opp.Axes.DependencyBlocker,
			"relationship_stakes":   opp.Axes.RelationshipStakes,
			"risk_if_ignored":       opp.Axes.RiskIfIgnored,
			"recurrence_signal":     opp.Axes.RecurrenceSignal,
			"confidence":            opp.Axes.Confidence,
		}
		for name, value := range axes {
			assert.GreaterOrEqual(t, value, 0.0, "axis %s on %s", name, rec.ID)
			assert.LessOrEqual(t, value, 10.0, "axis %s on %s", name, rec.ID)
		}
		assert.GreaterOrEqual(t, opp.Priority, 0.0, rec.ID)
		assert.LessOrEqual(t, opp.Priority, 100.0, rec.ID)
	}
}

func TestOverlapCount(t *testing.T) {
	configured := []string{"Golang", "vectors"}
	assert.Equal(t, 2, overlapCount([]string{"golang", "VECTORS", "extra"}, configured, 3))
	assert.Equal(t, 1, overlapCount([]string{"golang", "golang"}, configured, 3))
	assert.Equal(t, 1, overlapCount([]string{"golang", "vectors"}, configured, 1))
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 100)
	short := excerpt(long, 40)
	assert.LessOrEqual(t, len([]rune(short)), 41)
	assert.Equal(t, "hi", excerpt("  hi  ", 40))
}
