package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/lib/pq"
)

// Store implements memory.VectorStore against a Supabase-style schema:
// a records table with a pgvector embedding column and a SQL function
// performing the similarity search server side.
type Store struct {
	db *sql.DB

	matchQuery   string
	listQuery    string
	missingQuery string
	updateQuery  string
	upsertQuery  string
	countQuery   string
}

var (
	_ memory.VectorStore = (*Store)(nil)
	_ memory.Writer      = (*Store)(nil)
	_ memory.Backfiller  = (*Store)(nil)
)

// recordColumns are the columns shared by every record query, in scan order.
// position is not part of the schema.
const recordColumns = `id, COALESCE(title, ''), COALESCE(content, ''), assets, COALESCE(type, ''), COALESCE(ai_description, ''), COALESCE(category, ''), created_at`

// New wraps db. cfg.Function and cfg.Table are quoted as identifiers.
func New(db *sql.DB, cfg Config) *Store {
	cfg.defaults()
	fn := pq.QuoteIdentifier(cfg.Function)
	table := pq.QuoteIdentifier(cfg.Table)

	return &Store{
		db:           db,
		matchQuery:   `SELECT ` + recordColumns + `, similarity FROM ` + fn + `($1::vector, $2, $3)`,
		listQuery:    `SELECT ` + recordColumns + ` FROM ` + table + ` ORDER BY created_at DESC`,
		missingQuery: `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE embedding IS NULL ORDER BY created_at ASC`,
		updateQuery:  `UPDATE ` + table + ` SET embedding = $1::vector WHERE id = $2`,
		upsertQuery: `INSERT INTO ` + table + ` (id, title, content, assets, type, ai_description, category, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, $9)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				assets = EXCLUDED.assets,
				type = EXCLUDED.type,
				ai_description = EXCLUDED.ai_description,
				category = EXCLUDED.category,
				embedding = EXCLUDED.embedding`,
		countQuery: `SELECT COUNT(*), COUNT(embedding) FROM ` + table,
	}
}

// Match calls the similarity function. The server applies threshold and
// limit and returns rows ordered by similarity descending.
func (s *Store) Match(ctx context.Context, vec []float32, threshold float64, limit int) ([]memory.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, s.matchQuery, VectorLiteral(vec), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: match memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []memory.Candidate
	for rows.Next() {
		var c memory.Candidate
		dest := append(recordDest(&c.Record), &c.Similarity)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: match rows: %w", err)
	}
	return out, nil
}

// List returns every record, newest first. Embeddings are not fetched.
func (s *Store) List(ctx context.Context) ([]memory.Record, error) {
	return s.queryRecords(ctx, s.listQuery)
}

// MissingEmbeddings returns up to limit records without an embedding,
// oldest first. A limit of zero or less returns all of them.
func (s *Store) MissingEmbeddings(ctx context.Context, limit int) ([]memory.Record, error) {
	if limit > 0 {
		return s.queryRecords(ctx, s.missingQuery+` LIMIT $1`, limit)
	}
	return s.queryRecords(ctx, s.missingQuery)
}

// SetEmbedding stores vec on record id.
func (s *Store) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	result, err := s.db.ExecContext(ctx, s.updateQuery, VectorLiteral(vec), id)
	if err != nil {
		return fmt.Errorf("postgres: set embedding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Put inserts rec or updates the record with the same ID.
func (s *Store) Put(ctx context.Context, rec memory.Record) error {
	var embedding any
	if rec.HasEmbedding() {
		embedding = VectorLiteral(rec.Embedding)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.upsertQuery,
		rec.ID, rec.Title, rec.Content, pq.StringArray(rec.Assets), string(rec.Type),
		rec.AIDescription, rec.Category, embedding, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: put memory: %w", err)
	}
	return nil
}

// Count returns the total number of records and how many have an embedding.
func (s *Store) Count(ctx context.Context) (total, embedded int, err error) {
	if err := s.db.QueryRowContext(ctx, s.countQuery).Scan(&total, &embedded); err != nil {
		return 0, 0, fmt.Errorf("postgres: count memories: %w", err)
	}
	return total, embedded, nil
}

// HealthCheck pings the database and runs a trivial query.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres: query check: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []memory.Record
	for rows.Next() {
		var rec memory.Record
		if err := rows.Scan(recordDest(&rec)...); err != nil {
			return nil, fmt.Errorf("postgres: scan memory: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: memory rows: %w", err)
	}
	return out, nil
}

// recordDest returns scan targets matching recordColumns.
func recordDest(rec *memory.Record) []any {
	return []any{
		&rec.ID,
		&rec.Title,
		&rec.Content,
		(*pq.StringArray)(&rec.Assets),
		(*string)(&rec.Type),
		&rec.AIDescription,
		&rec.Category,
		&rec.CreatedAt,
	}
}

// VectorLiteral formats vec in pgvector text form, e.g. "[0.1,0.2]".
func VectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*10 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
