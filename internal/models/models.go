package models

import (
	"encoding/json"
	"strings"
	"time"
)

// AlertLevel is the classifier's routing decision for a message.
type AlertLevel string

const (
	AlertNone   AlertLevel = "none"
	AlertDigest AlertLevel = "digest"
	AlertHot    AlertLevel = "hot"
)

// Message is a single chat message as delivered by the ingestion side.
// Timestamps are epoch milliseconds throughout the system.
type Message struct {
	ID         string `json:"id" db:"id"`
	RoomID     string `json:"room_id" db:"room_id"`
	RoomName   string `json:"room_name" db:"room_name"`
	SenderID   string `json:"sender_id" db:"sender_id"`
	SenderName string `json:"sender_name" db:"sender_name"`
	Body       string `json:"body" db:"body"`
	Timestamp  int64  `json:"timestamp" db:"timestamp"`
}

// Classification holds the externally produced analysis fields for a message.
type Classification struct {
	MessageID          string     `json:"message_id"`
	RelevanceScore     int        `json:"relevance_score"`
	Topics             []string   `json:"topics"`
	Entities           []string   `json:"entities"`
	ContributionFlag   bool       `json:"contribution_flag"`
	ContributionThemes []string   `json:"contribution_themes"`
	ContributionHint   string     `json:"contribution_hint"`
	AlertLevel         AlertLevel `json:"alert_level"`
}

// Record joins a message with its classification (if any) for analytics.
type Record struct {
	Message
	Classified         bool       `json:"classified"`
	RelevanceScore     int        `json:"relevance_score"`
	Topics             []string   `json:"topics"`
	Entities           []string   `json:"entities"`
	ContributionFlag   bool       `json:"contribution_flag"`
	ContributionThemes []string   `json:"contribution_themes"`
	ContributionHint   string     `json:"contribution_hint"`
	AlertLevel         AlertLevel `json:"alert_level"`
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// DayKey formats an epoch-millisecond timestamp as a calendar day bucket.
func DayKey(ts int64) string {
	return time.UnixMilli(ts).Format("2006-01-02")
}

// ParseLabels decodes a JSON array of labels, tolerating malformed or empty
// input by returning an empty slice. Labels are trimmed; blanks are dropped.
func ParseLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []string{}
	}
	labels := make([]string, 0, len(parsed))
	for _, item := range parsed {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			labels = append(labels, s)
		}
	}
	return labels
}

// NormalizeAlertLevel maps arbitrary input to a valid alert level.
func NormalizeAlertLevel(raw string) AlertLevel {
	switch AlertLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case AlertDigest:
		return AlertDigest
	case AlertHot:
		return AlertHot
	default:
		return AlertNone
	}
}
