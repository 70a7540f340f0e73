package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// AnswerRequest is the input to Answerer.Answer.
type AnswerRequest struct {
	Query string

	// Context is the output of Assemble for the candidates.
	Context string

	// CandidateIDs lists the IDs present in Context, in order.
	CandidateIDs []string

	// History is only used when FollowUp is set.
	History  []memory.Turn
	FollowUp bool
}

// Answer is the generator's reply.
type Answer struct {
	Text string

	// RelevantIDs is the subset of the candidate IDs the model judged
	// relevant, in the model's order. Empty when the model picked none or
	// its reply could not be parsed.
	RelevantIDs []string
}

// Answerer asks a text-generation provider to answer a query from an
// assembled context and to pick the relevant candidates.
type Answerer struct {
	gen    provider.Provider
	cfg    Config
	logger *slog.Logger
}

// NewAnswerer returns an Answerer backed by gen. A nil gen is treated as a
// provider without credentials.
func NewAnswerer(gen provider.Provider, cfg Config, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &Answerer{gen: gen, cfg: cfg, logger: logger}
}

// Answer makes one generation call. It never fails: provider errors map to
// fixed messages and unparseable output becomes the answer text verbatim.
func (a *Answerer) Answer(ctx context.Context, req AnswerRequest) Answer {
	if a.gen == nil {
		a.logger.Warn("answer skipped: no generator configured")
		return Answer{Text: MessageMissingKey}
	}

	resp, err := a.gen.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
		JSONResponse: a.cfg.JSONResponse,
	})
	switch {
	case errors.Is(err, provider.ErrMissingCredentials):
		a.logger.Warn("answer skipped: provider has no API key", "model", a.gen.ModelName())
		return Answer{Text: MessageMissingKey}
	case err != nil:
		a.logger.Error("answer generation failed",
			"model", a.gen.ModelName(),
			"class", provider.Class(err),
			"error", err,
		)
		return Answer{Text: MessageGenerateFailed}
	case strings.TrimSpace(resp.Content) == "":
		a.logger.Error("answer generation failed", "model", a.gen.ModelName(), "error", provider.ErrEmptyResponse)
		return Answer{Text: MessageGenerateFailed}
	}

	ans, ok := ParseAnswer(resp.Content)
	if !ok {
		a.logger.Debug("answer was not structured, using raw text", "model", a.gen.ModelName())
	}
	ans.RelevantIDs = restrictTo(ans.RelevantIDs, req.CandidateIDs)
	return ans
}

// restrictTo keeps the IDs that appear in allowed, in their original order,
// without duplicates.
func restrictTo(ids, allowed []string) []string {
	if len(ids) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		known[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			continue
		}
		delete(known, id)
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// BuildPrompt renders the single prompt sent to the generator.
func BuildPrompt(req AnswerRequest) string {
	var b strings.Builder

	b.WriteString("You are the search assistant of a personal memory canvas. ")
	b.WriteString("The user saved the notes, links and images below. Answer their question using only these memories.\n\n")

	if req.FollowUp && len(req.History) > 0 {
		b.WriteString("This is a follow-up question. Earlier in the conversation:\n")
		for _, t := range req.History {
			content := strings.TrimSpace(t.Content)
			if content == "" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker(t.Role), content)
		}
		b.WriteString("\nResolve references such as \"it\", \"that one\" or \"the second one\" against that exchange.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(req.Query))
	fmt.Fprintf(&b, "Memories (%d):\n\n%s\n\n", len(req.CandidateIDs), req.Context)

	b.WriteString("Instructions:\n")
	b.WriteString("1. Decide which memories genuinely help answer the question. Being listed above is not enough.\n")
	if req.FollowUp {
		b.WriteString("2. These memories were selected in the previous turn; treat all of them as candidates.\n")
	} else {
		fmt.Fprintf(&b, "2. Prefer memories with relevance above %d%%.\n", RelevanceBand)
	}
	b.WriteString("3. If the question is about images, photos or how something looked, rely on the Visual Content descriptions.\n")
	b.WriteString("4. Write a concise answer of 3 to 5 sentences that only uses the relevant memories.\n")
	b.WriteString("5. Reply with exactly one JSON object and nothing else:\n")
	b.WriteString(`{"answer": "<your answer>", "relevantIds": ["<memory id>", ...]}`)
	b.WriteString("\nUse the Memory ID values verbatim. Use an empty list if none are relevant.")

	return b.String()
}

func speaker(r memory.Role) string {
	if r == memory.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
