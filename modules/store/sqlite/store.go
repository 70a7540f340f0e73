package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flemzord/mindcanvas/internal/memory"
)

// Store implements memory.VectorStore on a SQLite database. Embeddings are
// stored as JSON arrays and compared in process.
type Store struct {
	db *sql.DB
}

var (
	_ memory.VectorStore = (*Store)(nil)
	_ memory.Writer      = (*Store)(nil)
	_ memory.Backfiller  = (*Store)(nil)
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `id, title, content, assets, type, ai_description, embedding, category, position_x, position_y, created_at`

// Put inserts rec or replaces the record with the same ID.
func (s *Store) Put(ctx context.Context, rec memory.Record) error {
	assets, err := json.Marshal(nonNil(rec.Assets))
	if err != nil {
		return fmt.Errorf("sqlite: marshal assets: %w", err)
	}

	var embedding sql.NullString
	if rec.HasEmbedding() {
		raw, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("sqlite: marshal embedding: %w", err)
		}
		embedding = sql.NullString{String: string(raw), Valid: true}
	}

	var x, y sql.NullFloat64
	if rec.Position != nil {
		x = sql.NullFloat64{Float64: rec.Position.X, Valid: true}
		y = sql.NullFloat64{Float64: rec.Position.Y, Valid: true}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Content, string(assets), string(rec.Type), rec.AIDescription,
		embedding, rec.Category, x, y, createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put memory: %w", err)
	}
	return nil
}

// Match scores every embedded record against vec with cosine similarity.
// Records whose embedding has a different dimension score 0.
func (s *Store) Match(ctx context.Context, vec []float32, threshold float64, limit int) ([]memory.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM memories WHERE embedding IS NOT NULL ORDER BY created_at DESC, rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: match memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return memory.Rank(records, vec, threshold, limit), nil
}

// List returns every record, newest first.
func (s *Store) List(ctx context.Context) ([]memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM memories ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// MissingEmbeddings returns up to limit records without an embedding, oldest first.
func (s *Store) MissingEmbeddings(ctx context.Context, limit int) ([]memory.Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM memories
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list unembedded memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// SetEmbedding stores vec on record id. Returns memory.ErrNotFound if the
// record does not exist.
func (s *Store) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("sqlite: marshal embedding: %w", err)
	}

	result, err := s.db.ExecContext(ctx, "UPDATE memories SET embedding = ? WHERE id = ?", string(raw), id)
	if err != nil {
		return fmt.Errorf("sqlite: set embedding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Count returns the total number of records and how many have an embedding.
func (s *Store) Count(ctx context.Context) (total, embedded int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(embedding) FROM memories",
	).Scan(&total, &embedded)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: count memories: %w", err)
	}
	return total, embedded, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// HealthCheck implements the gateway readiness check.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]memory.Record, error) {
	var out []memory.Record
	for rows.Next() {
		var (
			rec          memory.Record
			assetsJSON   string
			recType      string
			embedding    sql.NullString
			x, y         sql.NullFloat64
			createdAtStr string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.Content, &assetsJSON, &recType, &rec.AIDescription,
			&embedding, &rec.Category, &x, &y, &createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}

		rec.Type = memory.Type(recType)

		if assetsJSON != "" && assetsJSON != "[]" && assetsJSON != "null" {
			if err := json.Unmarshal([]byte(assetsJSON), &rec.Assets); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal assets of %s: %w", rec.ID, err)
			}
		}

		if embedding.Valid && embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &rec.Embedding); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal embedding of %s: %w", rec.ID, err)
			}
		}

		if x.Valid && y.Valid {
			rec.Position = &memory.Position{X: x.Float64, Y: y.Float64}
		}

		if createdAtStr != "" {
			t, err := time.Parse(time.RFC3339Nano, createdAtStr)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAtStr, err)
			}
			rec.CreatedAt = t
		}

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan memories rows: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
