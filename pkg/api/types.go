package api

// Role identifies the author of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the three canonical roles.
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is a single turn in a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-neutral chat request. Adapters translate it
// into each upstream provider's wire format and must never mutate it.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Usage reports token consumption for a completed request.
// TotalTokens is always PromptTokens + CompletionTokens; adapters derive it
// rather than trusting an upstream-supplied total.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative. The gateway always returns exactly
// one choice regardless of what the upstream produced.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the provider-neutral chat response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Created int64    `json:"created"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// CompletionRequest is the prompt-style request accepted on /completion.
// It is translated to a single-turn ChatRequest before routing.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// CompletionResponse is the flattened response shape for /completion.
type CompletionResponse struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// ModelInfo describes one catalog entry returned by /models.
type ModelInfo struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	DisplayName  string  `json:"display_name"`
	CostPer1K    float64 `json:"cost_per_1k_tokens"`
	MaxTokens    int     `json:"max_tokens"`
}

// ModelList wraps the catalog for the /models endpoint.
type ModelList struct {
	Models []ModelInfo `json:"models"`
}
