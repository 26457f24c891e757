package googleai

import (
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// translateRequest converts a canonical request into the generateContent
// wire format. System turns become the systemInstruction; assistant turns
// take the provider's "model" role token. The input is never mutated.
func translateRequest(req *api.ChatRequest) generateRequest {
	var out generateRequest

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case api.RoleSystem:
			system = append(system, m.Content)
		case api.RoleAssistant:
			out.Contents = append(out.Contents, content{
				Role:  "model",
				Parts: []part{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, content{
				Role:  "user",
				Parts: []part{{Text: m.Content}},
			})
		}
	}

	if len(system) > 0 {
		out.SystemInstruction = &content{
			Parts: []part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	if req.Temperature != nil || req.MaxTokens != nil {
		cfg := &generationConfig{}
		if req.Temperature != nil {
			t := *req.Temperature
			cfg.Temperature = &t
		}
		if req.MaxTokens != nil {
			n := *req.MaxTokens
			cfg.MaxOutputTokens = &n
		}
		out.GenerationConfig = cfg
	}

	return out
}

// translateResponse converts the upstream reply into the canonical shape.
// Gemini supplies no response id, so one is always synthesized, and the
// total token count is derived rather than taken from usageMetadata.
func translateResponse(resp *generateResponse, model string) *api.ChatResponse {
	var text strings.Builder
	var finish string
	if len(resp.Candidates) > 0 {
		first := resp.Candidates[0]
		for _, p := range first.Content.Parts {
			text.WriteString(p.Text)
		}
		finish = first.FinishReason
	}

	return &api.ChatResponse{
		ID:      api.NewResponseID(),
		Object:  "chat.completion",
		Model:   model,
		Created: time.Now().Unix(),
		Choices: []api.Choice{{
			Message: api.Message{
				Role:    api.RoleAssistant,
				Content: text.String(),
			},
			FinishReason: finish,
		}},
		Usage: api.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.PromptTokenCount + resp.UsageMetadata.CandidatesTokenCount,
		},
	}
}
