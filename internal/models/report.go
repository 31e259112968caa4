package models

// ValueConfig is the operator-tuned interest lexicon stored in the database.
// The scorer reads it to ground the strategic fit and comparative advantage
// axes; synthesis includes it in prompts.
type ValueConfig struct {
	Topics         []string `json:"topics"`
	Projects       []string `json:"projects"`
	AlertThreshold int      `json:"alert_threshold"`
}

// DefaultValueConfig seeds a fresh database with a workable interest lexicon.
func DefaultValueConfig() ValueConfig {
	return ValueConfig{
		Topics: []string{
			"agentic-architecture",
			"multi-agent-systems",
			"context-management",
			"orchestration",
			"practical-tools",
			"repos",
			"business-ai",
			"productivity",
		},
		Projects: []string{
			"core-platform",
			"automation-tooling",
			"knowledge-system",
			"analytics-pipeline",
			"integration-workflows",
			"ops-infrastructure",
		},
		AlertThreshold: 7,
	}
}

// DailyReport is a persisted synthesis briefing for one calendar day.
// JSON columns are stored as raw strings; callers own their shape.
type DailyReport struct {
	ID               string `json:"id"`
	ReportDate       string `json:"report_date"`
	BriefingMD       string `json:"briefing_md"`
	BriefingJSON     string `json:"briefing_json"`
	Contributions    string `json:"contributions"`
	Trends           string `json:"trends"`
	DailyMemo        string `json:"daily_memo"`
	ConversationArcs string `json:"conversation_arcs"`
}
