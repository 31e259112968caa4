package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/models"
)

type gptResponse struct {
	RelevanceScore     int      `json:"relevance_score"`
	Topics             []string `json:"topics"`
	Entities           []string `json:"entities"`
	ContributionFlag   bool     `json:"contribution_flag"`
	ContributionThemes []string `json:"contribution_themes"`
	ContributionHint   string   `json:"contribution_hint"`
	AlertLevel         string   `json:"alert_level"`
}

type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *SimpleClassifier
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fallback:    NewSimpleClassifier(),
		logger:      logger,
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, msg models.Message, cfg models.ValueConfig) models.Classification {
	prompt := buildPrompt(msg, cfg)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return c.fallback.Classify(ctx, msg, cfg)
	}

	var parsed gptResponse
	response := stripJSONFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return c.fallback.Classify(ctx, msg, cfg)
	}

	relevance := parsed.RelevanceScore
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 10 {
		relevance = 10
	}

	return models.Classification{
		MessageID:          msg.ID,
		RelevanceScore:     relevance,
		Topics:             cleanLabels(parsed.Topics),
		Entities:           cleanLabels(parsed.Entities),
		ContributionFlag:   parsed.ContributionFlag,
		ContributionThemes: cleanLabels(parsed.ContributionThemes),
		ContributionHint:   strings.TrimSpace(parsed.ContributionHint),
		AlertLevel:         models.NormalizeAlertLevel(parsed.AlertLevel),
	}
}

func buildPrompt(msg models.Message, cfg models.ValueConfig) string {
	return fmt.Sprintf(`You triage chat messages for someone who cares about these topics: %s
and these projects: %s.

Analyze the message below and return ONLY a JSON object with this structure:
{
    "relevance_score": 0-10,
    "topics": ["topic1", "topic2"],
    "entities": ["tool or product names mentioned"],
    "contribution_flag": true if the sender could use this person's help,
    "contribution_themes": ["what kind of help"],
    "contribution_hint": "one sentence on how to contribute, or empty",
    "alert_level": "none" | "digest" | "hot"
}

Use "hot" only for time-sensitive messages scoring %d or higher.

Channel: %s
Sender: %s
Message: %s`,
		strings.Join(cfg.Topics, ", "),
		strings.Join(cfg.Projects, ", "),
		cfg.AlertThreshold,
		msg.RoomName, msg.SenderName, msg.Body)
}

// stripJSONFences tolerates models that wrap JSON in markdown code fences.
func stripJSONFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label != "" {
			out = append(out, label)
		}
	}
	return out
}
