package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/engine"
	"github.com/xaenox/vibez/internal/models"
	"github.com/xaenox/vibez/internal/storage"
)

const (
	maxTrendLines        = 6
	maxContributionLines = 5
	maxArcLines          = 5
	memoMaxRunes         = 400
)

// Briefing is the structured daily summary the model is asked to produce.
type Briefing struct {
	Headline      string             `json:"headline"`
	Memo          string             `json:"memo"`
	Trends        []string           `json:"trends"`
	Contributions []ContributionNote `json:"contributions"`
	Arcs          []string           `json:"arcs"`
}

type ContributionNote struct {
	Title string `json:"title"`
	Why   string `json:"why"`
	Where string `json:"where"`
}

// Synthesizer turns a day's analytics into a persisted briefing.
type Synthesizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	subject     models.Subject
	store       storage.Storage
	logger      *zap.Logger
}

func New(apiKey, model string, maxTokens int, temperature float64, subject models.Subject, store storage.Storage, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		subject:     subject,
		store:       store,
		logger:      logger,
	}
}

// GenerateDaily builds, persists, and returns the briefing for today. The
// GPT call is best effort: on failure the briefing is assembled from the
// analytics directly.
func (s *Synthesizer) GenerateDaily(ctx context.Context, report engine.StatsReport, dashboard engine.ContributionDashboard) (*models.DailyReport, error) {
	briefing := s.requestBriefing(ctx, report, dashboard)
	briefing = compact(briefing)

	briefingJSON, err := json.Marshal(briefing)
	if err != nil {
		return nil, fmt.Errorf("error encoding briefing: %w", err)
	}
	contributions, _ := json.Marshal(dashboard.ActNow)
	trends, _ := json.Marshal(report.Topics)
	arcs, _ := json.Marshal(report.Semantic.Arcs)

	daily := &models.DailyReport{
		ID:               uuid.New().String(),
		ReportDate:       time.Now().Format("2006-01-02"),
		BriefingMD:       renderMarkdown(briefing),
		BriefingJSON:     string(briefingJSON),
		Contributions:    string(contributions),
		Trends:           string(trends),
		DailyMemo:        briefing.Memo,
		ConversationArcs: string(arcs),
	}
	if err := s.store.SaveDailyReport(ctx, daily); err != nil {
		return nil, fmt.Errorf("error saving daily report: %w", err)
	}
	return daily, nil
}

func (s *Synthesizer) requestBriefing(ctx context.Context, report engine.StatsReport, dashboard engine.ContributionDashboard) Briefing {
	prompt := buildPrompt(s.subject, report, dashboard)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   s.maxTokens,
			Temperature: float32(s.temperature),
		},
	)
	if err != nil {
		s.logger.Error("Failed to get briefing from GPT", zap.Error(err))
		return fallbackBriefing(report, dashboard)
	}

	var briefing Briefing
	raw := repairJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &briefing); err != nil {
		s.logger.Error("Failed to parse briefing response",
			zap.Error(err),
			zap.String("response", raw))
		return fallbackBriefing(report, dashboard)
	}
	return briefing
}

func buildPrompt(subject models.Subject, report engine.StatsReport, dashboard engine.ContributionDashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You write %s daily briefing. Address %s directly.\n\n",
		subject.Possessive(), subject.DisplayName())
	fmt.Fprintf(&b, "Window: %s to %s, %d messages across %d channels.\n",
		report.From, report.To, report.TotalMessages, len(report.TopChannels))

	if len(report.Topics) > 0 {
		b.WriteString("Top topics (count, trend):\n")
		for i, topic := range report.Topics {
			if i == maxTrendLines {
				break
			}
			fmt.Fprintf(&b, "- %s: %d, %s\n", topic.Topic, topic.MessageCount, topic.Trend)
		}
	}
	if len(dashboard.ActNow) > 0 {
		b.WriteString("Top contribution opportunities:\n")
		for i, opp := range dashboard.ActNow {
			if i == maxContributionLines {
				break
			}
			fmt.Fprintf(&b, "- [%s, %.0f] %s: %s", opp.RoomName, opp.Priority, opp.SenderName, opp.Excerpt)
			if subject.Mentioned(opp.Excerpt) {
				fmt.Fprintf(&b, " (names %s)", subject.DisplayName())
			}
			b.WriteString("\n")
		}
	}
	if len(report.Semantic.Arcs) > 0 {
		b.WriteString("Conversation arcs (title, size, momentum):\n")
		for i, arc := range report.Semantic.Arcs {
			if i == maxArcLines {
				break
			}
			fmt.Fprintf(&b, "- %s: %d, %s\n", arc.Title, arc.MessageCount, arc.Momentum)
		}
	}

	b.WriteString(`
Return ONLY a JSON object:
{
    "headline": "one line",
    "memo": "2-3 sentences on where to spend attention today",
    "trends": ["short trend notes"],
    "contributions": [{"title": "...", "why": "...", "where": "channel"}],
    "arcs": ["one line per notable thread"]
}`)
	return b.String()
}

// fallbackBriefing assembles a mechanical briefing straight from the
// analytics when the model is unavailable.
func fallbackBriefing(report engine.StatsReport, dashboard engine.ContributionDashboard) Briefing {
	briefing := Briefing{
		Headline: fmt.Sprintf("%d messages, %d scored opportunities", report.TotalMessages, dashboard.CandidateCount),
	}
	for i, topic := range report.Topics {
		if i == maxTrendLines {
			break
		}
		briefing.Trends = append(briefing.Trends,
			fmt.Sprintf("%s: %d messages, trend %s", topic.Topic, topic.MessageCount, topic.Trend))
	}
	for i, opp := range dashboard.ActNow {
		if i == maxContributionLines {
			break
		}
		briefing.Contributions = append(briefing.Contributions, ContributionNote{
			Title: opp.Excerpt,
			Why:   strings.Join(opp.Reasons, "; "),
			Where: opp.RoomName,
		})
	}
	for i, arc := range report.Semantic.Arcs {
		if i == maxArcLines {
			break
		}
		briefing.Arcs = append(briefing.Arcs,
			fmt.Sprintf("%s (%d messages, %s)", arc.Title, arc.MessageCount, arc.Momentum))
	}
	if len(briefing.Contributions) > 0 {
		briefing.Memo = fmt.Sprintf("Start with %q in %s.",
			briefing.Contributions[0].Title, briefing.Contributions[0].Where)
	} else {
		briefing.Memo = "Nothing urgent surfaced today."
	}
	return briefing
}

// repairJSON extracts the outermost JSON object, tolerating code fences and
// leading or trailing prose around it.
func repairJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		response = response[start : end+1]
	}
	return strings.TrimSpace(response)
}

// compact trims every field so the memo stays readable on a phone.
func compact(briefing Briefing) Briefing {
	briefing.Headline = strings.TrimSpace(briefing.Headline)
	briefing.Memo = truncate(strings.TrimSpace(briefing.Memo), memoMaxRunes)
	if len(briefing.Trends) > maxTrendLines {
		briefing.Trends = briefing.Trends[:maxTrendLines]
	}
	if len(briefing.Contributions) > maxContributionLines {
		briefing.Contributions = briefing.Contributions[:maxContributionLines]
	}
	if len(briefing.Arcs) > maxArcLines {
		briefing.Arcs = briefing.Arcs[:maxArcLines]
	}
	return briefing
}

func renderMarkdown(briefing Briefing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", briefing.Headline)
	if briefing.Memo != "" {
		fmt.Fprintf(&b, "%s\n\n", briefing.Memo)
	}
	if len(briefing.Trends) > 0 {
		b.WriteString("## Trends\n")
		for _, trend := range briefing.Trends {
			fmt.Fprintf(&b, "- %s\n", trend)
		}
		b.WriteString("\n")
	}
	if len(briefing.Contributions) > 0 {
		b.WriteString("## Where to contribute\n")
		for _, note := range briefing.Contributions {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", note.Title, note.Where, note.Why)
		}
		b.WriteString("\n")
	}
	if len(briefing.Arcs) > 0 {
		b.WriteString("## Conversation arcs\n")
		for _, arc := range briefing.Arcs {
			fmt.Fprintf(&b, "- %s\n", arc)
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
