package retrieval

import (
	"math"
	"strconv"
	"strings"

	"github.com/flemzord/mindcanvas/internal/memory"
)

// BlockSeparator separates memory blocks in an assembled context.
const BlockSeparator = "\n\n---\n\n"

// Assemble renders candidates, in order, as text blocks for the generator.
// Each block starts with the record ID and, when showScores is set, the
// similarity as a percentage. Blank optional fields are omitted. The image
// description is labelled separately from what the user wrote.
func Assemble(candidates []memory.Candidate, showScores bool) string {
	blocks := make([]string, 0, len(candidates))
	for i := range candidates {
		blocks = append(blocks, block(&candidates[i], showScores))
	}
	return strings.Join(blocks, BlockSeparator)
}

func block(c *memory.Candidate, showScores bool) string {
	var b strings.Builder

	b.WriteString("[Memory ID: ")
	b.WriteString(c.ID)
	b.WriteString("]")
	if showScores {
		b.WriteString(" (Relevance: ")
		b.WriteString(strconv.Itoa(int(math.Round(c.Similarity * 100))))
		b.WriteString("%)")
	}

	line := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		b.WriteString("\n")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = "(untitled)"
	}
	line("Title", title)

	switch c.Kind() {
	case memory.KindLink:
		url, body := c.LinkParts()
		line("URL", url)
		line("Content", body)
	default:
		line("Content", c.Content)
	}

	line("Visual Content (AI-generated image description)", c.AIDescription)
	line("Category", c.Category)

	return b.String()
}
