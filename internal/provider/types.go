package provider

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for model completion termination.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// LLMMessage represents a single message in a conversation.
type LLMMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the input to a Provider.Complete call.
type CompletionRequest struct {
	Messages    []LLMMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`

	// JSONResponse asks the provider to constrain output to a JSON object
	// when the backend supports it. Callers must still parse defensively.
	JSONResponse bool `json:"json_response,omitempty"`
}

// Prompt concatenates the content of every message, separated by blank
// lines. Providers without a chat format use it as a single prompt.
func (r CompletionRequest) Prompt() string {
	var n int
	for _, m := range r.Messages {
		n += len(m.Content) + 2
	}
	buf := make([]byte, 0, n)
	for i, m := range r.Messages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, m.Content...)
	}
	return string(buf)
}

// CompletionResponse is the output of a Provider.Complete call.
type CompletionResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
