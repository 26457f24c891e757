package cohere

import (
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// Default injected when the caller omits temperature; this provider's own
// documented default.
const defaultTemperature = 0.3

// translateRequest converts a canonical request into the Chat API wire
// format. The last user turn becomes the message, earlier turns the chat
// history, and system turns the preamble. The input is never mutated.
func translateRequest(req *api.ChatRequest) chatRequest {
	out := chatRequest{Model: req.Model}

	var system []string
	var turns []historyEntry
	for _, m := range req.Messages {
		switch m.Role {
		case api.RoleSystem:
			system = append(system, m.Content)
		case api.RoleAssistant:
			turns = append(turns, historyEntry{Role: "CHATBOT", Message: m.Content})
		default:
			turns = append(turns, historyEntry{Role: "USER", Message: m.Content})
		}
	}
	out.Preamble = strings.Join(system, "\n\n")

	// The trailing user turn is the message; everything before it is history.
	if n := len(turns); n > 0 {
		out.Message = turns[n-1].Message
		out.ChatHistory = turns[:n-1]
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
	}

	return out
}

// translateResponse converts the upstream reply into the canonical shape,
// deriving the token total from billed units.
func translateResponse(resp *chatResponse, model string) *api.ChatResponse {
	out := &api.ChatResponse{
		ID:      resp.GenerationID,
		Object:  "chat.completion",
		Model:   model,
		Created: time.Now().Unix(),
		Choices: []api.Choice{{
			Message: api.Message{
				Role:    api.RoleAssistant,
				Content: resp.Text,
			},
			// Vocabulary like "COMPLETE" or "MAX_TOKENS" passes through.
			FinishReason: resp.FinishReason,
		}},
		Usage: api.Usage{
			PromptTokens:     resp.Meta.BilledUnits.InputTokens,
			CompletionTokens: resp.Meta.BilledUnits.OutputTokens,
			TotalTokens:      resp.Meta.BilledUnits.InputTokens + resp.Meta.BilledUnits.OutputTokens,
		},
	}

	if out.ID == "" {
		out.ID = api.NewResponseID()
	}

	return out
}
