package classifier

import (
	"context"
	"strings"

	"github.com/xaenox/vibez/internal/models"
)

// SimpleClassifier is the lexical fallback used when no API key is set or
// the GPT backend fails. It only matches the configured topics and projects
// against the body, so its relevance scores are conservative.
type SimpleClassifier struct{}

func NewSimpleClassifier() *SimpleClassifier {
	return &SimpleClassifier{}
}

func (c *SimpleClassifier) Classify(_ context.Context, msg models.Message, cfg models.ValueConfig) models.Classification {
	body := strings.ToLower(msg.Body)

	var topics []string
	for _, topic := range cfg.Topics {
		if matchesLabel(body, topic) {
			topics = append(topics, topic)
		}
	}
	var themes []string
	for _, project := range cfg.Projects {
		if matchesLabel(body, project) {
			themes = append(themes, project)
		}
	}

	relevance := 2*len(topics) + len(themes)
	if relevance > 10 {
		relevance = 10
	}

	alert := models.AlertNone
	if relevance >= cfg.AlertThreshold {
		alert = models.AlertDigest
	}

	return models.Classification{
		MessageID:          msg.ID,
		RelevanceScore:     relevance,
		Topics:             topics,
		Entities:           []string{},
		ContributionFlag:   false,
		ContributionThemes: themes,
		AlertLevel:         alert,
	}
}

// matchesLabel checks both the hyphenated label and its space-joined form.
func matchesLabel(body, label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return false
	}
	if strings.Contains(body, label) {
		return true
	}
	return strings.Contains(body, strings.ReplaceAll(label, "-", " "))
}
