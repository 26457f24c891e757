package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

func TestCompleteSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer upstream-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-3.5-turbo" {
			t.Errorf("upstream model = %q", req.Model)
		}

		json.NewEncoder(w).Encode(chatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-3.5-turbo",
			Choices: []chatChoice{
				{Message: chatMessage{Role: "assistant", Content: "hi there"}, FinishReason: "stop"},
			},
			Usage: chatUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		})
	}))
	defer upstream.Close()

	a := New(Config{BaseURL: upstream.URL})
	resp, err := a.Complete(context.Background(), &api.ChatRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}},
	}, provider.Credentials{APIKey: "upstream-key"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Choices[0].Message.Content != "hi there" {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"backend exploded","type":"server_error"}}`))
	}))
	defer upstream.Close()

	a := New(Config{BaseURL: upstream.URL})
	_, err := a.Complete(context.Background(), &api.ChatRequest{
		Model:    "gpt-4o",
		Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}},
	}, provider.Credentials{})

	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", ue.StatusCode)
	}
	if ue.Detail != "backend exploded" {
		t.Errorf("Detail = %q", ue.Detail)
	}
	if ue.Timeout {
		t.Error("Timeout = true on a status error")
	}
}

func TestCompleteTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer upstream.Close()

	a := New(Config{BaseURL: upstream.URL, Timeout: 20 * time.Millisecond})
	_, err := a.Complete(context.Background(), &api.ChatRequest{
		Model:    "gpt-4o",
		Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}},
	}, provider.Credentials{})

	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if !ue.Timeout {
		t.Error("Timeout = false, want true")
	}
}
