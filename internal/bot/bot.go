package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/classifier"
	"github.com/xaenox/vibez/internal/engine"
	"github.com/xaenox/vibez/internal/models"
	"github.com/xaenox/vibez/internal/semantic"
	"github.com/xaenox/vibez/internal/storage"
)

const offsetStateKey = "telegram_offset"

// Indexer is the slice of the vector index the bot needs: ingestion writes
// and the hybrid search behind /search.
type Indexer interface {
	IndexRecords(ctx context.Context, records []models.Record) (int, error)
	HybridSearch(ctx context.Context, queryText string, lookbackDays, limit int) ([]semantic.SearchHit, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	storage     storage.Storage
	engine      *engine.Engine
	classifier  classifier.Classifier
	synthesizer Synthesizer
	index       Indexer
	defaults    Defaults
	logger      *zap.Logger
}

// Synthesizer generates the daily briefing on demand for /digest.
type Synthesizer interface {
	GenerateDaily(ctx context.Context, report engine.StatsReport, dashboard engine.ContributionDashboard) (*models.DailyReport, error)
}

// Defaults are the configured report parameters used when a command omits
// them. Zero lookback and candidate values defer to the engine's own clamps.
type Defaults struct {
	WindowDays     int
	LookbackDays   int
	CandidateLimit int
}

func (d Defaults) normalized() Defaults {
	if d.WindowDays <= 0 {
		d.WindowDays = 30
	}
	return d
}

func New(token string, store storage.Storage, eng *engine.Engine, clf classifier.Classifier, synth Synthesizer, index Indexer, defaults Defaults, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:         api,
		storage:     store,
		engine:      eng,
		classifier:  clf,
		synthesizer: synth,
		index:       index,
		defaults:    defaults.normalized(),
		logger:      logger,
	}, nil
}

func (b *Bot) Start() error {
	ctx := context.Background()

	// Resume from the persisted update offset so a restart does not replay
	// already ingested messages.
	offset := 0
	if saved, err := b.storage.GetSyncState(ctx, offsetStateKey); err == nil && saved != "" {
		if parsed, err := strconv.Atoi(saved); err == nil {
			offset = parsed
		}
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if err := b.storage.SetSyncState(ctx, offsetStateKey, strconv.Itoa(update.UpdateID+1)); err != nil {
			b.logger.Warn("Failed to persist update offset", zap.Error(err))
		}
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	b.ingest(ctx, message, content)
}

// ingest stores and classifies one chat message, then feeds the vector
// index. Forwarded messages keep their original sender and timestamp so the
// analytics see the conversation as it happened.
func (b *Bot) ingest(ctx context.Context, message *tgbotapi.Message, content string) {
	msg := &models.Message{
		ID:         uuid.New().String(),
		RoomID:     strconv.FormatInt(message.Chat.ID, 10),
		RoomName:   chatName(message.Chat),
		SenderID:   strconv.FormatInt(message.From.ID, 10),
		SenderName: senderName(message.From),
		Body:       content,
		Timestamp:  int64(message.Date) * 1000,
	}
	if message.ForwardFrom != nil {
		msg.SenderID = strconv.FormatInt(message.ForwardFrom.ID, 10)
		msg.SenderName = senderName(message.ForwardFrom)
		if message.ForwardDate > 0 {
			msg.Timestamp = int64(message.ForwardDate) * 1000
		}
	}

	if err := b.storage.SaveMessage(ctx, msg); err != nil {
		b.logger.Error("Failed to save message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save that message.")
		return
	}

	cfg, err := b.storage.ValueConfig(ctx)
	if err != nil {
		b.logger.Warn("Falling back to default value config", zap.Error(err))
		cfg = models.DefaultValueConfig()
	}

	classification := b.classifier.Classify(ctx, *msg, cfg)
	if err := b.storage.SaveClassification(ctx, &classification); err != nil {
		b.logger.Error("Failed to save classification",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	}

	if b.index != nil {
		record := models.Record{
			Message:            *msg,
			Classified:         true,
			RelevanceScore:     classification.RelevanceScore,
			Topics:             classification.Topics,
			Entities:           classification.Entities,
			ContributionFlag:   classification.ContributionFlag,
			ContributionThemes: classification.ContributionThemes,
			ContributionHint:   classification.ContributionHint,
			AlertLevel:         classification.AlertLevel,
		}
		if _, err := b.index.IndexRecords(ctx, []models.Record{record}); err != nil {
			b.logger.Error("Failed to index message",
				zap.Error(err),
				zap.String("message_id", msg.ID))
		}
	}

	if classification.AlertLevel == models.AlertHot {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("🔥 Hot: %s", classification.ContributionHint))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "stats":
		b.handleStats(ctx, message)
	case "focus":
		b.handleFocus(ctx, message)
	case "topic":
		b.handleTopic(ctx, message)
	case "topics":
		b.handleTopics(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	case "digest":
		b.handleDigest(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Vibez! 📊
I watch your chats, classify what matters, and tell you where your contribution counts.

Forward me messages or add me to a group, then use /help to see what I can report.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/stats [days] - Windowed activity report (default 30 days)
/focus [days] - Where to contribute right now
/topic <name> - Drill into one topic
/topics - List every topic seen so far
/search <query> - Hybrid semantic and keyword search
/digest - Today's synthesized briefing

Anything else you send gets stored, classified, and indexed.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	days := parseDays(message.CommandArguments(), b.defaults.WindowDays)
	report, err := b.engine.Stats(ctx, days)
	if err != nil {
		b.logger.Error("Failed to build stats", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build the stats report.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Activity %s → %s*\n", escapeMarkdown(report.From), escapeMarkdown(report.To))
	fmt.Fprintf(&sb, "Messages: %d \\(%d classified, %d with topics\\)\n",
		report.TotalMessages, report.ClassifiedMessages, report.WithTopicsMessages)
	fmt.Fprintf(&sb, "Peak: %s around %02d:00\n\n",
		escapeMarkdown(report.Seasonality.PeakWeekday), report.Seasonality.PeakHour)

	if len(report.Topics) > 0 {
		sb.WriteString("*Top topics:*\n")
		for i, topic := range report.Topics {
			if i == 8 {
				break
			}
			fmt.Fprintf(&sb, "%s: %d \\(%s, %s\\)\n",
				escapeMarkdown(topic.Topic), topic.MessageCount,
				escapeMarkdown(topic.Trend), escapeMarkdown(topic.RecurrenceLabel))
		}
	}
	if report.Semantic.Enabled && len(report.Semantic.Arcs) > 0 {
		sb.WriteString("\n*Conversation arcs:*\n")
		for _, arc := range report.Semantic.Arcs {
			fmt.Fprintf(&sb, "%s: %d msgs, %s\n",
				escapeMarkdown(arc.Title), arc.MessageCount, escapeMarkdown(arc.Momentum))
		}
	}

	b.sendMarkdown(message.Chat.ID, sb.String())
}

func (b *Bot) handleFocus(ctx context.Context, message *tgbotapi.Message) {
	days := parseDays(message.CommandArguments(), b.defaults.LookbackDays)
	dashboard, err := b.engine.Dashboard(ctx, days, b.defaults.CandidateLimit)
	if err != nil {
		b.logger.Error("Failed to build dashboard", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build the focus dashboard.")
		return
	}

	if dashboard.CandidateCount == 0 {
		b.sendMessage(message.Chat.ID, "No contribution opportunities in the lookback window.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Focus \\(%d candidates, %d days\\)*\n\n",
		dashboard.CandidateCount, dashboard.LookbackDays)
	writeSection(&sb, "Act now", dashboard.ActNow)
	writeSection(&sb, "High leverage", dashboard.HighLeverage)
	writeSection(&sb, "Blocked", dashboard.Blocked)
	writeSection(&sb, "Quick wins", dashboard.QuickWins)
	if len(dashboard.RecurringThemes) > 0 {
		fmt.Fprintf(&sb, "*Recurring themes:* %s\n",
			escapeMarkdown(strings.Join(dashboard.RecurringThemes, ", ")))
	}

	b.sendMarkdown(message.Chat.ID, sb.String())
}

func (b *Bot) handleTopic(ctx context.Context, message *tgbotapi.Message) {
	topic := strings.TrimSpace(message.CommandArguments())
	if topic == "" {
		b.sendMessage(message.Chat.ID, "Usage: /topic <name>")
		return
	}

	drilldown, err := b.engine.Topic(ctx, topic, 0)
	if err != nil {
		b.logger.Error("Failed to build topic drilldown",
			zap.Error(err),
			zap.String("topic", topic))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build the topic report.")
		return
	}
	if !drilldown.Found {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("No messages tagged %q in the window.", topic))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Topic: %s*\n", escapeMarkdown(drilldown.Topic))
	fmt.Fprintf(&sb, "%d messages over %d active days \\(%s recurrence, trend %s\\)\n",
		drilldown.Lifecycle.MessageCount, drilldown.Lifecycle.ActiveDays,
		escapeMarkdown(drilldown.Lifecycle.RecurrenceLabel), escapeMarkdown(drilldown.Lifecycle.Trend))
	fmt.Fprintf(&sb, "First seen: %s\n\n", escapeMarkdown(drilldown.FirstSeenEver))

	if len(drilldown.TopUsers) > 0 {
		sb.WriteString("*Most active:*\n")
		for i, user := range drilldown.TopUsers {
			if i == 5 {
				break
			}
			fmt.Fprintf(&sb, "%s: %d\n", escapeMarkdown(user.Name), user.MessageCount)
		}
	}
	if len(drilldown.RelatedTopics) > 0 {
		sb.WriteString("\n*Often appears with:*\n")
		for i, edge := range drilldown.RelatedTopics {
			if i == 5 {
				break
			}
			other := edge.TopicA
			if strings.EqualFold(other, drilldown.Topic) {
				other = edge.TopicB
			}
			fmt.Fprintf(&sb, "%s: %d\n", escapeMarkdown(other), edge.CoMessages)
		}
	}

	b.sendMarkdown(message.Chat.ID, sb.String())
}

func (b *Bot) handleTopics(ctx context.Context, message *tgbotapi.Message) {
	topics, err := b.storage.DistinctTopics(ctx)
	if err != nil {
		b.logger.Error("Failed to list topics", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't list the topics.")
		return
	}
	if len(topics) == 0 {
		b.sendMessage(message.Chat.ID, "No classified topics yet.")
		return
	}
	b.sendMessage(message.Chat.ID, "Topics seen so far:\n"+strings.Join(topics, ", "))
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		b.sendMessage(message.Chat.ID, "Usage: /search <query>")
		return
	}
	if b.index == nil {
		b.sendMessage(message.Chat.ID, "Search needs the vector index, which is disabled.")
		return
	}

	hits, err := b.index.HybridSearch(ctx, query, 30, 10)
	if err != nil {
		b.logger.Error("Search failed", zap.Error(err), zap.String("query", query))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the search failed.")
		return
	}
	if len(hits) == 0 {
		b.sendMessage(message.Chat.ID, "Nothing matched.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Results for %s:*\n", escapeMarkdown(query))
	for _, hit := range hits {
		body := hit.Body
		if runes := []rune(body); len(runes) > 120 {
			body = string(runes[:120]) + "…"
		}
		fmt.Fprintf(&sb, "%s in %s: %s\n",
			escapeMarkdown(hit.SenderName), escapeMarkdown(hit.RoomName), escapeMarkdown(body))
	}
	b.sendMarkdown(message.Chat.ID, sb.String())
}

func (b *Bot) handleDigest(ctx context.Context, message *tgbotapi.Message) {
	if latest, err := b.storage.LatestDailyReport(ctx); err == nil && latest != nil {
		if latest.ReportDate == models.DayKey(int64(message.Date)*1000) {
			b.sendMessage(message.Chat.ID, latest.BriefingMD)
			return
		}
	}

	report, err := b.engine.Stats(ctx, b.defaults.WindowDays)
	if err != nil {
		b.logger.Error("Failed to build stats for digest", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build today's digest.")
		return
	}
	dashboard, err := b.engine.Dashboard(ctx, b.defaults.LookbackDays, b.defaults.CandidateLimit)
	if err != nil {
		b.logger.Error("Failed to build dashboard for digest", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't build today's digest.")
		return
	}

	daily, err := b.synthesizer.GenerateDaily(ctx, report, dashboard)
	if err != nil {
		b.logger.Error("Failed to generate daily briefing", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the briefing generation failed.")
		return
	}
	b.sendMessage(message.Chat.ID, daily.BriefingMD)
}

func writeSection(sb *strings.Builder, title string, opportunities []engine.Opportunity) {
	if len(opportunities) == 0 {
		return
	}
	fmt.Fprintf(sb, "*%s:*\n", escapeMarkdown(title))
	for i, opp := range opportunities {
		if i == 5 {
			break
		}
		fmt.Fprintf(sb, "\\[%0.f\\] %s in %s: %s\n",
			opp.Priority, escapeMarkdown(opp.SenderName),
			escapeMarkdown(opp.RoomName), escapeMarkdown(opp.Excerpt))
	}
	sb.WriteString("\n")
}

func parseDays(args string, fallback int) int {
	args = strings.TrimSpace(args)
	if args == "" {
		return fallback
	}
	days, err := strconv.Atoi(args)
	if err != nil || days <= 0 {
		return fallback
	}
	return days
}

func chatName(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return chat.UserName
}

func senderName(user *tgbotapi.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	return user.UserName
}

func escapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
