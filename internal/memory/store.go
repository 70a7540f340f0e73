package memory

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("memory: record not found")

// Candidate is a record returned by a similarity search, with its score.
// Candidates are never persisted.
type Candidate struct {
	Record
	Similarity float64 `json:"similarity"`
}

// Role identifies the speaker of a conversation turn.
type Role string

// Roles accepted in conversation history.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation, supplied by the caller.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IDs returns the record IDs of candidates in order.
func IDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID
	}
	return ids
}

// VectorStore is the storage contract the retrieval pipeline depends on.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Match returns records whose similarity to vec is at least threshold,
	// ordered by similarity descending, at most limit rows.
	Match(ctx context.Context, vec []float32, threshold float64, limit int) ([]Candidate, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)
}

// Writer is implemented by stores that accept new or updated records.
type Writer interface {
	Put(ctx context.Context, rec Record) error
}

// Backfiller is implemented by stores that support filling in missing
// embeddings after the fact.
type Backfiller interface {
	// MissingEmbeddings returns up to limit records with no embedding.
	MissingEmbeddings(ctx context.Context, limit int) ([]Record, error)

	// SetEmbedding stores vec for the record with the given ID.
	SetEmbedding(ctx context.Context, id string, vec []float32) error
}
