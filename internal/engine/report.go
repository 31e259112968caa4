package engine

import "sort"

// DailyCount is one day of a timeline, keyed by "2006-01-02".
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// sortedDailySeries flattens a day-keyed counter into an ascending series.
func sortedDailySeries(daily map[string]int) []DailyCount {
	series := make([]DailyCount, 0, len(daily))
	for day, count := range daily {
		series = append(series, DailyCount{Day: day, Count: count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day < series[j].Day })
	return series
}

// ActivityStat summarizes one user's or channel's activity inside the window.
type ActivityStat struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MessageCount int     `json:"message_count"`
	ActiveDays   int     `json:"active_days"`
	AvgRelevance float64 `json:"avg_relevance"`
	FirstSeen    string  `json:"first_seen"`
	LastSeen     string  `json:"last_seen"`
}

// TopicLifecycle is the per-topic recurrence and trend block.
type TopicLifecycle struct {
	Topic           string       `json:"topic"`
	MessageCount    int          `json:"message_count"`
	ActiveDays      int          `json:"active_days"`
	SpanDays        int          `json:"span_days"`
	RecurrenceRatio float64      `json:"recurrence_ratio"`
	RecurrenceLabel string       `json:"recurrence_label"`
	Trend           string       `json:"trend"`
	AvgRelevance    float64      `json:"avg_relevance"`
	FirstSeen       string       `json:"first_seen"`
	LastSeen        string       `json:"last_seen"`
	DailySeries     []DailyCount `json:"daily_series,omitempty"`
}

// CooccurrenceEdge links two topics that appeared in the same messages.
type CooccurrenceEdge struct {
	TopicA     string `json:"topic_a"`
	TopicB     string `json:"topic_b"`
	CoMessages int    `json:"co_messages"`
	Trend      string `json:"trend"`
	LastSeen   string `json:"last_seen"`
}

// NetworkNode is one participant in the relationship graph.
type NetworkNode struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	MessageCount int    `json:"message_count"`
}

// RelationshipEdge is a directed interaction edge with its signal breakdown.
type RelationshipEdge struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	TargetID   string  `json:"target_id"`
	TargetName string  `json:"target_name"`
	Replies    int     `json:"replies"`
	Mentions   int     `json:"mentions"`
	DMSignals  int     `json:"dm_signals"`
	Turns      int     `json:"turns"`
	Weight     float64 `json:"weight"`
}

// TopicAlignmentEdge is an undirected similarity edge between two users
// whose topic profiles overlap.
type TopicAlignmentEdge struct {
	UserA        string   `json:"user_a"`
	UserAName    string   `json:"user_a_name"`
	UserB        string   `json:"user_b"`
	UserBName    string   `json:"user_b_name"`
	Similarity   float64  `json:"similarity"`
	SharedTopics []string `json:"shared_topics"`
}

// NetworkGraph is the full social layer of a stats report.
type NetworkGraph struct {
	Nodes     []NetworkNode        `json:"nodes"`
	Edges     []RelationshipEdge   `json:"edges"`
	Alignment []TopicAlignmentEdge `json:"alignment"`
}

// Seasonality carries the weekday and hour histograms with their peaks.
type Seasonality struct {
	Weekday     [7]int  `json:"weekday"`
	Hour        [24]int `json:"hour"`
	PeakWeekday string  `json:"peak_weekday"`
	PeakHour    int     `json:"peak_hour"`
}

// StatsReport is the complete windowed analytics response.
type StatsReport struct {
	WindowDays         int    `json:"window_days"`
	From               string `json:"from"`
	To                 string `json:"to"`
	TotalMessages      int    `json:"total_messages"`
	ClassifiedMessages int    `json:"classified_messages"`
	WithTopicsMessages int    `json:"with_topics_messages"`

	Daily           []DailyCount `json:"daily"`
	DailyClassified []DailyCount `json:"daily_classified"`
	DailyWithTopics []DailyCount `json:"daily_with_topics"`
	Seasonality     Seasonality  `json:"seasonality"`

	TopUsers    []ActivityStat `json:"top_users"`
	TopChannels []ActivityStat `json:"top_channels"`

	Topics       []TopicLifecycle   `json:"topics"`
	Cooccurrence []CooccurrenceEdge `json:"cooccurrence"`

	Network  NetworkGraph      `json:"network"`
	Semantic SemanticAnalytics `json:"semantic"`
}

// TopicDrilldown is the focused view of a single topic. FirstSeenEver is
// computed against all stored history, not just the window.
type TopicDrilldown struct {
	Topic             string             `json:"topic"`
	Found             bool               `json:"found"`
	WindowDays        int                `json:"window_days"`
	Lifecycle         TopicLifecycle     `json:"lifecycle"`
	FirstSeenEver     string             `json:"first_seen_ever"`
	FirstSeenInWindow string             `json:"first_seen_in_window"`
	TopUsers          []ActivityStat     `json:"top_users"`
	RelatedTopics     []CooccurrenceEdge `json:"related_topics"`
	Samples           []MessageSample    `json:"samples"`
}

// MessageSample is a short excerpt used in drilldowns and arc listings.
type MessageSample struct {
	MessageID  string `json:"message_id"`
	RoomName   string `json:"room_name"`
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
	Timestamp  int64  `json:"timestamp"`
}

// Axes holds the twelve contribution scoring axes, each on a 0..10 scale.
type Axes struct {
	Urgency              float64 `json:"urgency"`
	Need                 float64 `json:"need"`
	Aging                float64 `json:"aging"`
	Leverage             float64 `json:"leverage"`
	StrategicFit         float64 `json:"strategic_fit"`
	ComparativeAdvantage float64 `json:"comparative_advantage"`
	EffortToValue        float64 `json:"effort_to_value"`
	DependencyBlocker    float64 `json:"dependency_blocker"`
	RelationshipStakes   float64 `json:"relationship_stakes"`
	RiskIfIgnored        float64 `json:"risk_if_ignored"`
	RecurrenceSignal     float64 `json:"recurrence_signal"`
	Confidence           float64 `json:"confidence"`
}

// Opportunity is one scored candidate message.
type Opportunity struct {
	MessageID  string   `json:"message_id"`
	RoomID     string   `json:"room_id"`
	RoomName   string   `json:"room_name"`
	SenderName string   `json:"sender_name"`
	Excerpt    string   `json:"excerpt"`
	Timestamp  int64    `json:"timestamp"`
	NeedType   string   `json:"need_type"`
	Priority   float64  `json:"priority"`
	Axes       Axes     `json:"axes"`
	Reasons    []string `json:"reasons"`
}

// ContributionDashboard is the prioritized where-to-contribute response.
type ContributionDashboard struct {
	GeneratedAt    string `json:"generated_at"`
	LookbackDays   int    `json:"lookback_days"`
	CandidateCount int    `json:"candidate_count"`

	ActNow       []Opportunity `json:"act_now"`
	HighLeverage []Opportunity `json:"high_leverage"`
	AgingRisk    []Opportunity `json:"aging_risk"`
	Blocked      []Opportunity `json:"blocked"`
	Relationship []Opportunity `json:"relationship"`
	QuickWins    []Opportunity `json:"quick_wins"`

	AxisMeans       map[string]float64 `json:"axis_means"`
	NeedTypeCounts  map[string]int     `json:"need_type_counts"`
	RecurringThemes []string           `json:"recurring_themes"`
}

// SemanticArc is one clustered conversation thread.
type SemanticArc struct {
	Title        string          `json:"title"`
	MessageCount int             `json:"message_count"`
	Coherence    float64         `json:"coherence"`
	Momentum     string          `json:"momentum"`
	Participants []string        `json:"participants"`
	Channels     []string        `json:"channels"`
	FirstSeen    string          `json:"first_seen"`
	LastSeen     string          `json:"last_seen"`
	Samples      []MessageSample `json:"samples"`
}

// SemanticAnalytics is the semantic block of a stats report. When the vector
// index is not configured the block is disabled, never an error.
type SemanticAnalytics struct {
	Enabled bool          `json:"enabled"`
	Status  string        `json:"status"`
	Arcs    []SemanticArc `json:"arcs"`
}
