package anthropic

import (
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// jsonPrefill starts the assistant turn when a JSON object is requested.
// The Messages API has no JSON mode; the model continues from the brace.
const jsonPrefill = "{"

// convertRequest builds the SDK parameters for req. It returns the text
// prefilled into the assistant turn, which the caller prepends to the reply.
func convertRequest(req provider.CompletionRequest, cfg *Config) (sdkanthropic.MessageNewParams, string) {
	system, messages := splitSystemMessages(req.Messages)

	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertMessages(messages),
		System:   system,
	}

	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}

	var prefill string
	if req.JSONResponse && endsWithUser(messages) {
		prefill = jsonPrefill
		params.Messages = append(params.Messages,
			sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(prefill)))
	}
	return params, prefill
}

// splitSystemMessages moves every system message into Anthropic's System
// parameter and returns the rest in order.
func splitSystemMessages(msgs []provider.LLMMessage) ([]sdkanthropic.TextBlockParam, []provider.LLMMessage) {
	var system []sdkanthropic.TextBlockParam
	rest := make([]provider.LLMMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == provider.MessageRoleSystem {
			system = append(system, sdkanthropic.TextBlockParam{Text: m.Content})
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// convertMessages maps user and assistant turns. Consecutive turns from the
// same speaker are merged since the API requires alternation.
func convertMessages(msgs []provider.LLMMessage) []sdkanthropic.MessageParam {
	var (
		result []sdkanthropic.MessageParam
		last   provider.MessageRole
		buf    []string
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		block := sdkanthropic.NewTextBlock(strings.Join(buf, "\n\n"))
		if last == provider.MessageRoleAssistant {
			result = append(result, sdkanthropic.NewAssistantMessage(block))
		} else {
			result = append(result, sdkanthropic.NewUserMessage(block))
		}
		buf = buf[:0]
	}

	for _, m := range msgs {
		role := provider.MessageRoleUser
		if m.Role == provider.MessageRoleAssistant {
			role = provider.MessageRoleAssistant
		}
		if role != last {
			flush()
			last = role
		}
		buf = append(buf, m.Content)
	}
	flush()
	return result
}

func endsWithUser(msgs []provider.LLMMessage) bool {
	return len(msgs) > 0 && msgs[len(msgs)-1].Role != provider.MessageRoleAssistant
}

// convertResponse joins the text blocks of msg.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var parts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			parts = append(parts, v.Text)
		}
	}

	return provider.CompletionResponse{
		Content:      strings.Join(parts, "\n"),
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
