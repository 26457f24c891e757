package openai

import (
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// Defaults injected when the caller omits sampling parameters.
const (
	defaultTemperature = 1.0
	defaultMaxTokens   = 1024
)

// translateRequest converts a canonical request into the Chat Completions
// wire format. The input is never mutated; a fresh payload is built.
func translateRequest(req *api.ChatRequest) chatCompletionRequest {
	out := chatCompletionRequest{
		Model:    req.Model,
		Messages: make([]chatMessage, 0, len(req.Messages)),
	}

	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	if req.Temperature != nil {
		t := *req.Temperature
		out.Temperature = &t
	} else {
		t := defaultTemperature
		out.Temperature = &t
	}

	if req.MaxTokens != nil {
		n := *req.MaxTokens
		out.MaxTokens = &n
	} else {
		n := defaultMaxTokens
		out.MaxTokens = &n
	}

	return out
}

// translateResponse converts the upstream reply into the canonical shape.
// TotalTokens is derived from prompt + completion even when the upstream
// supplies its own (possibly inconsistent) total.
func translateResponse(resp *chatCompletionResponse, fallbackModel string) *api.ChatResponse {
	out := &api.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Model:   resp.Model,
		Created: resp.Created,
		Usage: api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
		},
	}

	if out.ID == "" {
		out.ID = api.NewResponseID()
	}
	if out.Model == "" {
		out.Model = fallbackModel
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}

	choice := api.Choice{Message: api.Message{Role: api.RoleAssistant}}
	if len(resp.Choices) > 0 {
		first := resp.Choices[0]
		choice.Message.Content = first.Message.Content
		choice.FinishReason = first.FinishReason
		if first.Message.Role != "" {
			choice.Message.Role = api.Role(first.Message.Role)
		}
	}
	out.Choices = []api.Choice{choice}

	return out
}
