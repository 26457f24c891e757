package cohere

// Chat API (v1) wire types, internal to the adapter.

type historyEntry struct {
	Role    string `json:"role"` // "USER" or "CHATBOT"
	Message string `json:"message"`
}

type chatRequest struct {
	Model       string         `json:"model"`
	Message     string         `json:"message"`
	Preamble    string         `json:"preamble,omitempty"`
	ChatHistory []historyEntry `json:"chat_history,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
}

type billedUnits struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type chatMeta struct {
	BilledUnits billedUnits `json:"billed_units"`
}

type chatResponse struct {
	GenerationID string   `json:"generation_id"`
	Text         string   `json:"text"`
	FinishReason string   `json:"finish_reason"`
	Meta         chatMeta `json:"meta"`
}

type errorResponse struct {
	Message string `json:"message"`
}
