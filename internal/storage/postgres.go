package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &PostgresStorage{db: db, logger: logger}
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	if err := storage.seedValueConfig(); err != nil {
		return nil, fmt.Errorf("error seeding value config: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// seedValueConfig writes the default interest lexicon on first run only.
func (s *PostgresStorage) seedValueConfig() error {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM value_config"); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := models.DefaultValueConfig()
	entries := map[string]any{
		"topics":          defaults.Topics,
		"projects":        defaults.Projects,
		"alert_threshold": defaults.AlertThreshold,
	}
	for key, value := range entries {
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(
			"INSERT INTO value_config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
			key, string(encoded),
		); err != nil {
			return err
		}
	}
	s.logger.Info("Seeded default value config")
	return nil
}

func (s *PostgresStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, room_name, sender_id, sender_name, body, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.RoomID, msg.RoomName, msg.SenderID, msg.SenderName, msg.Body, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("error saving message: %w", err)
	}
	return nil
}

func (s *PostgresStorage) SaveClassification(ctx context.Context, c *models.Classification) error {
	topics, _ := json.Marshal(c.Topics)
	entities, _ := json.Marshal(c.Entities)
	themes, _ := json.Marshal(c.ContributionThemes)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classifications
			(message_id, relevance_score, topics, entities, contribution_flag,
			 contribution_themes, contribution_hint, alert_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (message_id) DO UPDATE SET
			relevance_score = EXCLUDED.relevance_score,
			topics = EXCLUDED.topics,
			entities = EXCLUDED.entities,
			contribution_flag = EXCLUDED.contribution_flag,
			contribution_themes = EXCLUDED.contribution_themes,
			contribution_hint = EXCLUDED.contribution_hint,
			alert_level = EXCLUDED.alert_level`,
		c.MessageID, c.RelevanceScore, string(topics), string(entities),
		c.ContributionFlag, string(themes), c.ContributionHint,
		string(models.NormalizeAlertLevel(string(c.AlertLevel))))
	if err != nil {
		return fmt.Errorf("error saving classification: %w", err)
	}
	return nil
}

// recordRow is the joined scan target for the analytics read path.
type recordRow struct {
	ID                 string         `db:"id"`
	RoomID             string         `db:"room_id"`
	RoomName           string         `db:"room_name"`
	SenderID           string         `db:"sender_id"`
	SenderName         string         `db:"sender_name"`
	Body               string         `db:"body"`
	Timestamp          int64          `db:"timestamp"`
	RelevanceScore     sql.NullInt64  `db:"relevance_score"`
	Topics             sql.NullString `db:"topics"`
	Entities           sql.NullString `db:"entities"`
	ContributionFlag   sql.NullBool   `db:"contribution_flag"`
	ContributionThemes sql.NullString `db:"contribution_themes"`
	ContributionHint   sql.NullString `db:"contribution_hint"`
	AlertLevel         sql.NullString `db:"alert_level"`
}

func (r recordRow) toRecord() models.Record {
	rec := models.Record{
		Message: models.Message{
			ID:         r.ID,
			RoomID:     r.RoomID,
			RoomName:   r.RoomName,
			SenderID:   r.SenderID,
			SenderName: r.SenderName,
			Body:       r.Body,
			Timestamp:  r.Timestamp,
		},
		Classified:         r.RelevanceScore.Valid || r.Topics.Valid || r.AlertLevel.Valid,
		RelevanceScore:     int(r.RelevanceScore.Int64),
		Topics:             models.ParseLabels(r.Topics.String),
		Entities:           models.ParseLabels(r.Entities.String),
		ContributionFlag:   r.ContributionFlag.Valid && r.ContributionFlag.Bool,
		ContributionThemes: models.ParseLabels(r.ContributionThemes.String),
		ContributionHint:   r.ContributionHint.String,
		AlertLevel:         models.NormalizeAlertLevel(r.AlertLevel.String),
	}
	return rec
}

func (s *PostgresStorage) MessagesSince(ctx context.Context, since int64) ([]models.Record, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT m.id, m.room_id, m.room_name, m.sender_id, m.sender_name,
		       m.body, m.timestamp, c.relevance_score, c.topics, c.entities,
		       c.contribution_flag, c.contribution_themes, c.contribution_hint, c.alert_level
		FROM messages m
		LEFT JOIN classifications c ON m.id = c.message_id
		WHERE m.timestamp >= $1
		ORDER BY m.timestamp ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (s *PostgresStorage) DistinctTopics(ctx context.Context) ([]string, error) {
	var raws []string
	err := s.db.SelectContext(ctx, &raws,
		"SELECT topics FROM classifications WHERE topics != '[]'")
	if err != nil {
		return nil, fmt.Errorf("error querying topics: %w", err)
	}

	seen := make(map[string]struct{})
	var topics []string
	for _, raw := range raws {
		for _, topic := range models.ParseLabels(raw) {
			if _, dup := seen[topic]; dup {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

func (s *PostgresStorage) RoomNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		"SELECT DISTINCT room_name FROM messages ORDER BY room_name")
	if err != nil {
		return nil, fmt.Errorf("error querying room names: %w", err)
	}
	return names, nil
}

func (s *PostgresStorage) ValueConfig(ctx context.Context) (models.ValueConfig, error) {
	config := models.DefaultValueConfig()

	rows, err := s.db.QueryxContext(ctx, "SELECT key, value FROM value_config")
	if err != nil {
		return config, fmt.Errorf("error querying value config: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "topics":
			config.Topics = models.ParseLabels(value)
		case "projects":
			config.Projects = models.ParseLabels(value)
		case "alert_threshold":
			var threshold int
			if err := json.Unmarshal([]byte(value), &threshold); err == nil {
				config.AlertThreshold = threshold
			}
		}
	}
	return config, rows.Err()
}

func (s *PostgresStorage) SaveDailyReport(ctx context.Context, report *models.DailyReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_reports
			(id, report_date, briefing_md, briefing_json, contributions, trends, daily_memo, conversation_arcs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (report_date) DO UPDATE SET
			briefing_md = EXCLUDED.briefing_md,
			briefing_json = EXCLUDED.briefing_json,
			contributions = EXCLUDED.contributions,
			trends = EXCLUDED.trends,
			daily_memo = EXCLUDED.daily_memo,
			conversation_arcs = EXCLUDED.conversation_arcs,
			generated_at = now()`,
		report.ID, report.ReportDate, report.BriefingMD, report.BriefingJSON,
		report.Contributions, report.Trends, report.DailyMemo, report.ConversationArcs)
	if err != nil {
		return fmt.Errorf("error saving daily report: %w", err)
	}
	return nil
}

func (s *PostgresStorage) LatestDailyReport(ctx context.Context) (*models.DailyReport, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT id, report_date::text, COALESCE(briefing_md, ''), COALESCE(briefing_json, ''),
		       COALESCE(contributions, ''), COALESCE(trends, ''), COALESCE(daily_memo, ''),
		       COALESCE(conversation_arcs, '')
		FROM daily_reports ORDER BY report_date DESC LIMIT 1`)

	var report models.DailyReport
	err := row.Scan(&report.ID, &report.ReportDate, &report.BriefingMD, &report.BriefingJSON,
		&report.Contributions, &report.Trends, &report.DailyMemo, &report.ConversationArcs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying latest report: %w", err)
	}
	return &report, nil
}

func (s *PostgresStorage) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM sync_state WHERE key = $1", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error querying sync state: %w", err)
	}
	return value, nil
}

func (s *PostgresStorage) SetSyncState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("error saving sync state: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
