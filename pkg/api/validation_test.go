package api

import "testing"

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func validChatRequest() *ChatRequest {
	return &ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
		},
	}
}

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ChatRequest)
		wantParam string
	}{
		{"valid", func(r *ChatRequest) {}, ""},
		{"missing model", func(r *ChatRequest) { r.Model = "" }, "model"},
		{"empty messages", func(r *ChatRequest) { r.Messages = nil }, "messages"},
		{"bad role", func(r *ChatRequest) { r.Messages[0].Role = "tool" }, "messages"},
		{"empty content", func(r *ChatRequest) { r.Messages[1].Content = "" }, "messages"},
		{"temperature too high", func(r *ChatRequest) { r.Temperature = floatPtr(2.5) }, "temperature"},
		{"temperature negative", func(r *ChatRequest) { r.Temperature = floatPtr(-0.1) }, "temperature"},
		{"temperature boundary ok", func(r *ChatRequest) { r.Temperature = floatPtr(2.0) }, ""},
		{"zero max tokens", func(r *ChatRequest) { r.MaxTokens = intPtr(0) }, "max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validChatRequest()
			tt.mutate(req)

			err := ValidateChatRequest(req)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("ValidateChatRequest() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateChatRequest() = nil, want error")
			}
			if err.Code != ErrorCodeInvalidRequest {
				t.Errorf("Code = %q, want %q", err.Code, ErrorCodeInvalidRequest)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}

func TestValidateCompletionRequest(t *testing.T) {
	err := ValidateCompletionRequest(&CompletionRequest{Model: "gpt-4o", Prompt: "hello"})
	if err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err = ValidateCompletionRequest(&CompletionRequest{Model: "gpt-4o"})
	if err == nil || err.Param != "prompt" {
		t.Fatalf("missing prompt: got %v, want prompt error", err)
	}
}

func TestCompletionToChat(t *testing.T) {
	req := &CompletionRequest{
		Model:       "gpt-4o",
		Prompt:      "say hi",
		Temperature: floatPtr(0.3),
		MaxTokens:   intPtr(16),
	}

	chat := req.ToChat()
	if chat.Model != "gpt-4o" {
		t.Errorf("Model = %q", chat.Model)
	}
	if len(chat.Messages) != 1 || chat.Messages[0].Role != RoleUser || chat.Messages[0].Content != "say hi" {
		t.Errorf("Messages = %+v, want single user turn", chat.Messages)
	}
	if chat.Temperature != req.Temperature || chat.MaxTokens != req.MaxTokens {
		t.Error("sampling parameters not carried over")
	}
}

func TestNewResponseID(t *testing.T) {
	a := NewResponseID()
	b := NewResponseID()
	if a == b {
		t.Fatal("NewResponseID returned duplicate ids")
	}
	if len(a) <= len("chatcmpl-") {
		t.Fatalf("id too short: %q", a)
	}
}
