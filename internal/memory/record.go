// Package memory defines memory records, the vector store contract and an
// in-memory store.
package memory

import (
	"strings"
	"time"
)

// Type is the explicit record type set when a memory is created.
type Type string

// Record types. An empty Type means the kind is inferred from content.
const (
	TypeDefault Type = "default"
	TypeLink    Type = "link"
	TypeImage   Type = "image"
)

// Kind is the effective presentation kind of a record.
type Kind string

// Kinds returned by Record.Kind.
const (
	KindDefault    Kind = "default"
	KindLink       Kind = "link"
	KindImage      Kind = "image"
	KindMultiImage Kind = "multi-image"
)

// maxBareLinkLength bounds how long a single-token content may be and still
// be treated as a bare URL.
const maxBareLinkLength = 500

// Position is a record's location on the canvas. The retrieval pipeline
// never reads it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is a single saved memory.
type Record struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Assets        []string  `json:"assets,omitempty"`
	Type          Type      `json:"type,omitempty"`
	AIDescription string    `json:"ai_description,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
	Category      string    `json:"category,omitempty"`
	Position      *Position `json:"position,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Kind classifies the record. An explicit link or image Type wins;
// otherwise the content shape decides.
func (r Record) Kind() Kind {
	switch r.Type {
	case TypeLink:
		return KindLink
	case TypeImage:
		if len(r.Assets) > 1 {
			return KindMultiImage
		}
		return KindImage
	}

	// The link rules look at the raw content: leading whitespace means text.
	content := r.Content
	if strings.HasPrefix(content, "http") && !strings.Contains(content, " ") && len(content) < maxBareLinkLength {
		return KindLink
	}
	if first, _, found := strings.Cut(content, "\n"); found && strings.HasPrefix(first, "http") {
		return KindLink
	}
	if len(r.Assets) > 0 && strings.TrimSpace(content) == "" {
		if len(r.Assets) > 1 {
			return KindMultiImage
		}
		return KindImage
	}
	return KindDefault
}

// IsLink reports whether the record is presented as a link.
func (r Record) IsLink() bool {
	return r.Kind() == KindLink
}

// LinkParts splits a link record's content into the URL (first line) and the
// remaining body. For non-link records url is empty and body is the content.
func (r Record) LinkParts() (url, body string) {
	if !r.IsLink() {
		return "", r.Content
	}
	first, rest, _ := strings.Cut(strings.TrimSpace(r.Content), "\n")
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

// EmbeddingText is the text an embedding for this record is computed from.
// Pass it through EmbeddingInput before sending it to a model.
func (r Record) EmbeddingText() string {
	return r.Title + " " + r.Content + " " + r.AIDescription
}

// EmbeddingInput flattens text onto one line. Stored records and queries go
// through it so both sides are embedded from the same shape of text.
func EmbeddingInput(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// HasEmbedding reports whether the record carries a vector.
func (r Record) HasEmbedding() bool {
	return len(r.Embedding) > 0
}
