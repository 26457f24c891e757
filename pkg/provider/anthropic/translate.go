package anthropic

import (
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// The Messages API requires max_tokens; this is injected when the caller
// omits it.
const defaultMaxTokens = 1024

// translateRequest converts a canonical request into the Messages API wire
// format. System turns move into the dedicated system field; the rest keep
// their role tokens. The input is never mutated.
func translateRequest(req *api.ChatRequest) messagesRequest {
	out := messagesRequest{
		Model:     req.Model,
		MaxTokens: defaultMaxTokens,
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == api.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	out.System = strings.Join(system, "\n\n")

	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		t := *req.Temperature
		out.Temperature = &t
	}

	return out
}

// translateResponse converts the upstream reply into the canonical shape.
// The upstream usage has no total; it is derived, which also covers replies
// that would supply an inconsistent one.
func translateResponse(resp *messagesResponse, fallbackModel string) *api.ChatResponse {
	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	out := &api.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Model:   resp.Model,
		Created: time.Now().Unix(),
		Choices: []api.Choice{{
			Message: api.Message{
				Role:    api.RoleAssistant,
				Content: content.String(),
			},
			// Provider-specific vocabulary ("end_turn", "max_tokens")
			// passes through as an opaque string.
			FinishReason: resp.StopReason,
		}},
		Usage: api.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	if out.ID == "" {
		out.ID = api.NewResponseID()
	}
	if out.Model == "" {
		out.Model = fallbackModel
	}

	return out
}
