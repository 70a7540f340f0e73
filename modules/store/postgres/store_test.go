package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/lib/pq"
)

var recordCols = []string{"id", "title", "content", "assets", "type", "ai_description", "category", "created_at"}

func newMockStore(t *testing.T, cfg Config) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return New(db, cfg), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var created = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestVectorLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []float32
		want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -0.25, 3}, "[0.5,-0.25,3]"},
		{[]float32{0.1}, "[0.1]"},
	}
	for _, tt := range tests {
		if got := VectorLiteral(tt.in); got != tt.want {
			t.Errorf("VectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{})

	cols := append(append([]string{}, recordCols...), "similarity")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "match_memories"($1::vector, $2, $3)`)).
		WithArgs("[1,0]", 0.4, 15).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "Go notes", "channels", "{}", "", "", "dev", created, 0.91).
			AddRow("m2", "Photo", "", "{a.png,b.png}", "image", "a cat", "", created, 0.55))

	got, err := s.Match(context.Background(), []float32{1, 0}, 0.4, 15)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "m1" || got[0].Similarity != 0.91 || got[0].Category != "dev" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Type != memory.TypeImage || len(got[1].Assets) != 2 || got[1].AIDescription != "a cat" {
		t.Errorf("got[1] = %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(created) {
		t.Errorf("created_at = %v", got[1].CreatedAt)
	}
	expectationsMet(t, mock)
}

func TestMatchCustomFunction(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{Function: "search_notes"})

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "search_notes"($1::vector, $2, $3)`)).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, recordCols...), "similarity")))

	got, err := s.Match(context.Background(), []float32{1}, 0.4, 5)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	expectationsMet(t, mock)
}

func TestMatchError(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{})

	mock.ExpectQuery("match_memories").WillReturnError(errors.New("function does not exist"))

	if _, err := s.Match(context.Background(), []float32{1}, 0.4, 15); err == nil {
		t.Fatal("expected error")
	}
	expectationsMet(t, mock)
}

func TestList(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{})

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "memories" ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow("new", "B", "b", nil, "", "", "", created.Add(time.Hour)).
			AddRow("old", "A", "https://go.dev", "{}", "link", "", "", created))

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("got = %+v", got)
	}
	if got[0].Assets != nil {
		t.Errorf("assets = %v, want nil", got[0].Assets)
	}
	if !got[1].IsLink() {
		t.Error("old should be a link")
	}
	expectationsMet(t, mock)
}

func TestMissingEmbeddings(t *testing.T) {
	t.Parallel()

	t.Run("limited", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, Config{})
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE embedding IS NULL ORDER BY created_at ASC LIMIT $1`)).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(recordCols).AddRow("m1", "t", "c", nil, "", "", "", created))

		got, err := s.MissingEmbeddings(context.Background(), 50)
		if err != nil {
			t.Fatalf("missing: %v", err)
		}
		if len(got) != 1 || got[0].ID != "m1" {
			t.Errorf("got = %+v", got)
		}
		expectationsMet(t, mock)
	})

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t, Config{})
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE embedding IS NULL ORDER BY created_at ASC`)).
			WithArgs().
			WillReturnRows(sqlmock.NewRows(recordCols))

		if _, err := s.MissingEmbeddings(context.Background(), 0); err != nil {
			t.Fatalf("missing: %v", err)
		}
		expectationsMet(t, mock)
	})
}

func TestSetEmbedding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"updated", 1, nil},
		{"not found", 0, memory.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, mock := newMockStore(t, Config{})
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "memories" SET embedding = $1::vector WHERE id = $2`)).
				WithArgs("[0.5,0.5]", "m1").
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := s.SetEmbedding(context.Background(), "m1", []float32{0.5, 0.5})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestPut(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{Table: "notes"})

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "notes"`)).
		WithArgs("m1", "Title", "Body", pq.StringArray{"a.png"}, "image", "desc", "cat", "[1,2]", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "notes"`)).
		WithArgs("m2", "", "text", pq.StringArray(nil), "", "", "", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := s.Put(ctx, memory.Record{
		ID: "m1", Title: "Title", Content: "Body", Assets: []string{"a.png"},
		Type: memory.TypeImage, AIDescription: "desc", Category: "cat",
		Embedding: []float32{1, 2}, CreatedAt: created,
	}); err != nil {
		t.Fatalf("put m1: %v", err)
	}
	if err := s.Put(ctx, memory.Record{ID: "m2", Content: "text"}); err != nil {
		t.Fatalf("put m2: %v", err)
	}
	expectationsMet(t, mock)
}

func TestCount(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t, Config{})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), COUNT(embedding) FROM "memories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(7, 5))

	total, embedded, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 7 || embedded != 5 {
		t.Errorf("count = (%d, %d), want (7, 5)", total, embedded)
	}
	expectationsMet(t, mock)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = db.Close() }()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		if err := New(db, Config{}).HealthCheck(context.Background()); err != nil {
			t.Errorf("health: %v", err)
		}
		expectationsMet(t, mock)
	})

	t.Run("ping fails", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = db.Close() }()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		if err := New(db, Config{}).HealthCheck(context.Background()); err == nil {
			t.Error("expected error")
		}
	})
}
