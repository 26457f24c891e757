// Package cohere implements the provider adapter for the Cohere Chat API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

const defaultBaseURL = "https://api.cohere.com"

// Config holds the adapter configuration.
type Config struct {
	BaseURL string        // default: https://api.cohere.com
	Timeout time.Duration // default: 120s
}

// Adapter talks to the Cohere Chat API.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// Ensure Adapter implements provider.Adapter at compile time.
var _ provider.Adapter = (*Adapter)(nil)

// New creates a Cohere adapter.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.Name {
	return provider.Cohere
}

// Complete sends the request to /v1/chat and translates the reply.
func (a *Adapter) Complete(ctx context.Context, req *api.ChatRequest, creds provider.Credentials) (*api.ChatResponse, error) {
	body, err := json.Marshal(translateRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := a.cfg.BaseURL + "/v1/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if creds.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)
	}

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(provider.Cohere, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &provider.UpstreamError{
			Provider:   provider.Cohere,
			StatusCode: httpResp.StatusCode,
			Detail:     extractErrorDetail(httpResp.Body),
		}
	}

	var cohereResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&cohereResp); err != nil {
		return nil, &provider.UpstreamError{
			Provider: provider.Cohere,
			Detail:   fmt.Sprintf("decoding response: %s", err),
		}
	}

	return translateResponse(&cohereResp, req.Model), nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func extractErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var errResp errorResponse
	if json.Unmarshal(raw, &errResp) == nil && errResp.Message != "" {
		return errResp.Message
	}
	return string(raw)
}
