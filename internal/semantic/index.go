package semantic

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/xaenox/vibez/internal/models"
)

const DefaultTable = "vibez_message_embeddings"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Neighbor is one nearest-neighbor hit for a stored message.
type Neighbor struct {
	MessageID  string  `db:"message_id"`
	RoomID     string  `db:"room_id"`
	RoomName   string  `db:"room_name"`
	SenderName string  `db:"sender_name"`
	Body       string  `db:"body"`
	Timestamp  int64   `db:"timestamp"`
	Distance   float64 `db:"distance"`
}

// SearchHit is one hybrid (semantic + lexical) search result.
type SearchHit struct {
	MessageID        string  `db:"message_id"`
	RoomName         string  `db:"room_name"`
	SenderName       string  `db:"sender_name"`
	Body             string  `db:"body"`
	Timestamp        int64   `db:"timestamp"`
	RelevanceScore   float64 `db:"relevance_score"`
	SemanticScore    float64 `db:"semantic_score"`
	LexicalScore     float64 `db:"lexical_score"`
	ContributionHint string  `db:"contribution_hint"`
}

// Index maintains and queries message embeddings in a pgvector table.
type Index struct {
	db       *sqlx.DB
	table    string
	embedder Embedder
	logger   *zap.Logger
}

func NewIndex(pgURL, table string, embedder Embedder, logger *zap.Logger) (*Index, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid index table name %q; use lowercase letters, digits, and underscores only", table)
	}

	db, err := sqlx.Connect("postgres", pgURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to vector index: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Index{db: db, table: table, embedder: embedder, logger: logger}, nil
}

// Ping reports whether the index backend is reachable.
func (idx *Index) Ping(ctx context.Context) error {
	return idx.db.PingContext(ctx)
}

// EnsureSchema creates the extension, table, and indexes if needed.
func (idx *Index) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			message_id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			room_name TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			body TEXT NOT NULL,
			timestamp BIGINT NOT NULL,
			relevance_score DOUBLE PRECISION,
			contribution_hint TEXT,
			embedding VECTOR(%d) NOT NULL,
			body_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', coalesce(body, ''))) STORED,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, idx.table, idx.embedder.Dimensions()),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_idx_embedding ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)", idx.table, idx.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_idx_tsv ON %s USING gin (body_tsv)", idx.table, idx.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_idx_timestamp ON %s (timestamp DESC)", idx.table, idx.table),
	}
	for _, stmt := range statements {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error ensuring index schema: %w", err)
		}
	}
	return nil
}

// IndexRecords upserts embeddings for the given records. Returns the number
// of rows written.
func (idx *Index) IndexRecords(ctx context.Context, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (message_id, room_id, room_name, sender_id, sender_name,
			body, timestamp, relevance_score, contribution_hint, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (message_id) DO UPDATE SET
			room_name = EXCLUDED.room_name,
			sender_name = EXCLUDED.sender_name,
			body = EXCLUDED.body,
			timestamp = EXCLUDED.timestamp,
			relevance_score = EXCLUDED.relevance_score,
			contribution_hint = EXCLUDED.contribution_hint,
			embedding = EXCLUDED.embedding,
			updated_at = now()`, idx.table)

	written := 0
	for _, rec := range records {
		vector := pgvector.NewVector(idx.embedder.EmbedText(ComposeEmbeddingText(rec)))
		_, err := idx.db.ExecContext(ctx, query,
			rec.ID, rec.RoomID, rec.RoomName, rec.SenderID, rec.SenderName,
			rec.Body, rec.Timestamp, float64(rec.RelevanceScore), rec.ContributionHint, vector)
		if err != nil {
			// One bad row should not sink the batch.
			idx.logger.Warn("Failed to index message",
				zap.Error(err),
				zap.String("message_id", rec.ID))
			continue
		}
		written++
	}
	return written, nil
}

// NeighborsOf returns the k nearest neighbors of a stored message's own
// vector, restricted to rows at or after since.
func (idx *Index) NeighborsOf(ctx context.Context, messageID string, k int, since int64) ([]Neighbor, error) {
	if k <= 0 {
		k = 10
	}
	query := fmt.Sprintf(`
		SELECT m.message_id, m.room_id, m.room_name, m.sender_name, m.body, m.timestamp,
		       (m.embedding <=> a.embedding) AS distance
		FROM %s m
		CROSS JOIN (SELECT embedding FROM %s WHERE message_id = $1) a
		WHERE m.message_id <> $1 AND m.timestamp >= $2
		ORDER BY m.embedding <=> a.embedding
		LIMIT $3`, idx.table, idx.table)

	var neighbors []Neighbor
	if err := idx.db.SelectContext(ctx, &neighbors, query, messageID, since, k); err != nil {
		return nil, fmt.Errorf("error querying neighbors of %s: %w", messageID, err)
	}
	return neighbors, nil
}

// NeighborsOfVector returns the k nearest neighbors of an arbitrary query
// vector, restricted to rows at or after since.
func (idx *Index) NeighborsOfVector(ctx context.Context, vector []float32, k int, since int64) ([]Neighbor, error) {
	if k <= 0 {
		k = 10
	}
	query := fmt.Sprintf(`
		SELECT message_id, room_id, room_name, sender_name, body, timestamp,
		       (embedding <=> $1) AS distance
		FROM %s
		WHERE timestamp >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, idx.table)

	var neighbors []Neighbor
	if err := idx.db.SelectContext(ctx, &neighbors, query, pgvector.NewVector(vector), since, k); err != nil {
		return nil, fmt.Errorf("error querying vector neighbors: %w", err)
	}
	return neighbors, nil
}

// HybridSearch ranks rows by a blend of vector similarity, full-text rank,
// and classifier relevance: 0.65*semantic + 0.25*min(2, lexical) +
// 0.10*relevance/10.
func (idx *Index) HybridSearch(ctx context.Context, queryText string, lookbackDays, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -lookbackDays).UnixMilli()
	queryVec := pgvector.NewVector(idx.embedder.EmbedText(queryText))

	query := fmt.Sprintf(`
		SELECT message_id, room_name, sender_name, body, timestamp,
		       COALESCE(relevance_score, 0) AS relevance_score,
		       COALESCE(contribution_hint, '') AS contribution_hint,
		       (1 - (embedding <=> $1)) AS semantic_score,
		       CASE WHEN NULLIF($2, '') IS NULL THEN 0
		            ELSE ts_rank_cd(body_tsv, websearch_to_tsquery('english', $2))
		       END AS lexical_score
		FROM %s
		WHERE timestamp >= $3
		ORDER BY
			(0.65 * (1 - (embedding <=> $1)))
			+ (CASE WHEN NULLIF($2, '') IS NULL THEN 0
			        ELSE 0.25 * LEAST(2, ts_rank_cd(body_tsv, websearch_to_tsquery('english', $2)))
			   END)
			+ (0.10 * (COALESCE(relevance_score, 0) / 10.0)) DESC,
			timestamp DESC
		LIMIT $4`, idx.table)

	var hits []SearchHit
	if err := idx.db.SelectContext(ctx, &hits, query, queryVec, queryText, cutoff, limit); err != nil {
		return nil, fmt.Errorf("error running hybrid search: %w", err)
	}
	return hits, nil
}

func (idx *Index) Close() error {
	return idx.db.Close()
}
