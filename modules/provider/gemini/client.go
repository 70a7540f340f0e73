package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flemzord/mindcanvas/internal/provider"
	"google.golang.org/genai"
)

// backend is the subset of the Gemini API the provider calls.
type backend interface {
	embed(ctx context.Context, model, text string) ([]float32, error)
	generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// genaiBackend calls Gemini through the official SDK.
type genaiBackend struct {
	client *genai.Client
}

func newGenaiBackend(ctx context.Context, apiKey string, httpClient *http.Client) (*genaiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", provider.ErrProviderDown, err)
	}
	return &genaiBackend{client: client}, nil
}

func (b *genaiBackend) embed(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := b.client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, provider.ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

func (b *genaiBackend) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, cfg)
}

// buildContents maps a completion request onto Gemini contents. System
// messages become the system instruction.
func buildContents(req provider.CompletionRequest) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   []*genai.Part
	)
	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case provider.MessageRoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return contents, nil
	}
	return contents, &genai.Content{Parts: system}
}

// buildConfig derives generation settings from req and the configured cap.
func buildConfig(req provider.CompletionRequest, configMaxTokens int, system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = configMaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens) //nolint:gosec // bounded by config validation
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// parseResponse converts a Gemini response into a provider.CompletionResponse.
func parseResponse(resp *genai.GenerateContentResponse) provider.CompletionResponse {
	var cr provider.CompletionResponse
	if resp == nil {
		return cr
	}
	cr.Content = resp.Text()
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		cr.FinishReason = mapFinishReason(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		cr.Usage = provider.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return cr
}

func mapFinishReason(r genai.FinishReason) provider.FinishReason {
	switch r {
	case genai.FinishReasonStop:
		return provider.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return provider.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(r)
	}
}

// classify wraps SDK errors with the provider sentinel matching their HTTP status.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if asAPIError(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", provider.ErrAuthentication, err)
		case apiErr.Code == http.StatusBadRequest && apiErr.Status == "INVALID_ARGUMENT" && isKeyError(apiErr.Message):
			return fmt.Errorf("%w: %w", provider.ErrAuthentication, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
}

// asAPIError extracts a genai.APIError whether it was returned by value or
// by pointer.
func asAPIError(err error, target *genai.APIError) bool {
	if errors.As(err, target) {
		return true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		*target = *ptr
		return true
	}
	return false
}

// isKeyError reports whether a 400 message is Gemini's invalid key response.
func isKeyError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "api key not valid") || strings.Contains(lower, "api_key_invalid")
}
