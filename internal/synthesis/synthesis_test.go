package synthesis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/engine"
	"github.com/xaenox/vibez/internal/models"
)

func TestBuildPromptAddressesSubject(t *testing.T) {
	prompt := buildPrompt(models.Subject{Name: "Dana"}, engine.StatsReport{}, engine.ContributionDashboard{})
	assert.Contains(t, prompt, "Dana's daily briefing")
	assert.Contains(t, prompt, "Address Dana directly")

	anon := buildPrompt(models.Subject{}, engine.StatsReport{}, engine.ContributionDashboard{})
	assert.Contains(t, anon, "your daily briefing")
}

func TestBuildPromptFlagsSubjectMentions(t *testing.T) {
	dashboard := engine.ContributionDashboard{
		ActNow: []engine.Opportunity{
			{RoomName: "general", Excerpt: "can Dana take a look at the rollout?"},
			{RoomName: "general", Excerpt: "unrelated chatter"},
			{RoomName: "random", Excerpt: "maybe dee knows the answer"},
		},
	}
	prompt := buildPrompt(models.Subject{Name: "Dana", Aliases: []string{"dee"}}, engine.StatsReport{}, dashboard)
	assert.Equal(t, 2, strings.Count(prompt, "(names Dana)"))
}

func TestRepairJSON(t *testing.T) {
	fenced := "```json\n{\"headline\": \"hi\"}\n```"
	assert.Equal(t, `{"headline": "hi"}`, repairJSON(fenced))

	prose := `Sure! Here is the briefing: {"headline": "hi"} hope it helps`
	assert.Equal(t, `{"headline": "hi"}`, repairJSON(prose))

	var briefing Briefing
	require.NoError(t, json.Unmarshal([]byte(repairJSON(prose)), &briefing))
	assert.Equal(t, "hi", briefing.Headline)
}

func TestFallbackBriefing(t *testing.T) {
	report := engine.StatsReport{
		TotalMessages: 42,
		Topics: []engine.TopicLifecycle{
			{Topic: "vectors", MessageCount: 10, Trend: "up"},
		},
		Semantic: engine.SemanticAnalytics{
			Enabled: true,
			Arcs: []engine.SemanticArc{
				{Title: "postgres / tuning", MessageCount: 5, Momentum: "rising"},
			},
		},
	}
	dashboard := engine.ContributionDashboard{
		CandidateCount: 3,
		ActNow: []engine.Opportunity{
			{Excerpt: "help with the migration", RoomName: "general", Reasons: []string{"urgent"}},
		},
	}

	briefing := fallbackBriefing(report, dashboard)
	assert.Contains(t, briefing.Headline, "42 messages")
	require.Len(t, briefing.Contributions, 1)
	assert.Equal(t, "general", briefing.Contributions[0].Where)
	assert.Contains(t, briefing.Memo, "general")
	assert.Len(t, briefing.Trends, 1)
	assert.Len(t, briefing.Arcs, 1)
}

func TestFallbackBriefingEmpty(t *testing.T) {
	briefing := fallbackBriefing(engine.StatsReport{}, engine.ContributionDashboard{})
	assert.Equal(t, "Nothing urgent surfaced today.", briefing.Memo)
}

func TestCompactTrimsLists(t *testing.T) {
	briefing := Briefing{
		Headline: " headline ",
		Memo:     strings.Repeat("m", 500),
		Trends:   make([]string, 10),
	}
	compacted := compact(briefing)
	assert.Equal(t, "headline", compacted.Headline)
	assert.LessOrEqual(t, len([]rune(compacted.Memo)), memoMaxRunes+1)
	assert.Len(t, compacted.Trends, maxTrendLines)
}

func TestRenderMarkdown(t *testing.T) {
	briefing := Briefing{
		Headline: "Busy day in vectors",
		Memo:     "Start with the migration thread.",
		Trends:   []string{"vectors trending up"},
		Contributions: []ContributionNote{
			{Title: "Review the plan", Why: "blocked team", Where: "general"},
		},
		Arcs: []string{"postgres / tuning (5 messages, rising)"},
	}

	md := renderMarkdown(briefing)
	assert.True(t, strings.HasPrefix(md, "# Busy day in vectors"))
	assert.Contains(t, md, "## Trends")
	assert.Contains(t, md, "## Where to contribute")
	assert.Contains(t, md, "**Review the plan** (general): blocked team")
	assert.Contains(t, md, "## Conversation arcs")
}
