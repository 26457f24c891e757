package api

import "fmt"

// ValidateChatRequest checks a ChatRequest for validity. It returns an
// *Error describing the first validation failure, or nil if the request
// is valid.
func ValidateChatRequest(req *ChatRequest) *Error {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one turn")
	}

	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return NewInvalidRequestError("messages",
				fmt.Sprintf("messages[%d].role must be system, user, or assistant", i))
		}
		if m.Content == "" {
			return NewInvalidRequestError("messages",
				fmt.Sprintf("messages[%d].content must not be empty", i))
		}
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	return nil
}

// ValidateCompletionRequest checks a CompletionRequest for validity.
func ValidateCompletionRequest(req *CompletionRequest) *Error {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if req.Prompt == "" {
		return NewInvalidRequestError("prompt", "prompt must not be empty")
	}
	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}
	return nil
}

// ToChat converts a CompletionRequest into its single-turn chat equivalent.
func (req *CompletionRequest) ToChat() *ChatRequest {
	return &ChatRequest{
		Model:       req.Model,
		Messages:    []Message{{Role: RoleUser, Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}
