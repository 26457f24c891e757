package googleai

import (
	"testing"

	"github.com/modelgate/modelgate/pkg/api"
)

func TestTranslateRequestRoleMapping(t *testing.T) {
	req := &api.ChatRequest{
		Model: "gemini-1.5-pro",
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "be brief"},
			{Role: api.RoleUser, Content: "hi"},
			{Role: api.RoleAssistant, Content: "hello"},
		},
	}

	got := translateRequest(req)

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("SystemInstruction = %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 2 {
		t.Fatalf("len(Contents) = %d, want 2", len(got.Contents))
	}
	if got.Contents[0].Role != "user" {
		t.Errorf("Contents[0].Role = %q", got.Contents[0].Role)
	}
	// The assistant role token is renamed to this provider's "model".
	if got.Contents[1].Role != "model" {
		t.Errorf("Contents[1].Role = %q, want model", got.Contents[1].Role)
	}

	if len(req.Messages) != 3 {
		t.Error("input request was mutated")
	}
}

func TestTranslateRequestGenerationConfig(t *testing.T) {
	req := &api.ChatRequest{
		Model:    "gemini-1.5-flash",
		Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}},
	}
	if got := translateRequest(req); got.GenerationConfig != nil {
		t.Errorf("GenerationConfig = %+v, want nil when caller omits parameters", got.GenerationConfig)
	}

	temp := 0.7
	maxTok := 32
	req.Temperature = &temp
	req.MaxTokens = &maxTok
	got := translateRequest(req)
	if got.GenerationConfig == nil ||
		*got.GenerationConfig.Temperature != 0.7 ||
		*got.GenerationConfig.MaxOutputTokens != 32 {
		t.Errorf("GenerationConfig = %+v", got.GenerationConfig)
	}
}

func TestTranslateResponse(t *testing.T) {
	resp := &generateResponse{
		Candidates: []candidate{{
			Content:      content{Role: "model", Parts: []part{{Text: "answer"}}},
			FinishReason: "STOP",
		}},
		// TotalTokenCount is inconsistent on purpose.
		UsageMetadata: usageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 42},
	}

	got := translateResponse(resp, "gemini-1.5-pro")

	if got.ID == "" {
		t.Error("no id synthesized; gemini never supplies one")
	}
	if got.Model != "gemini-1.5-pro" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Choices[0].Message.Content != "answer" {
		t.Errorf("content = %q", got.Choices[0].Message.Content)
	}
	if got.Choices[0].FinishReason != "STOP" {
		t.Errorf("FinishReason = %q, want opaque pass-through", got.Choices[0].FinishReason)
	}
	if got.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want derived 10", got.Usage.TotalTokens)
	}
}
