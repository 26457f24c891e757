// Package googleai implements the provider adapter for the Google
// Generative Language (Gemini) API.
package googleai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the adapter configuration.
type Config struct {
	BaseURL string        // default: https://generativelanguage.googleapis.com
	Timeout time.Duration // default: 120s
}

// Adapter talks to the Gemini generateContent endpoint.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// Ensure Adapter implements provider.Adapter at compile time.
var _ provider.Adapter = (*Adapter)(nil)

// New creates a Google adapter.
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
	return provider.Google
}

// Complete sends the request to the model's generateContent endpoint and
// translates the reply. The API key travels as a query parameter, which is
// this provider's scheme.
func (a *Adapter) Complete(ctx context.Context, req *api.ChatRequest, creds provider.Credentials) (*api.ChatResponse, error) {
	body, err := json.Marshal(translateRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.cfg.BaseURL, url.PathEscape(req.Model))
	if creds.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(creds.APIKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(provider.Google, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &provider.UpstreamError{
			Provider:   provider.Google,
			StatusCode: httpResp.StatusCode,
			Detail:     extractErrorDetail(httpResp.Body),
		}
	}

	var genResp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&genResp); err != nil {
		return nil, &provider.UpstreamError{
			Provider: provider.Google,
			Detail:   fmt.Sprintf("decoding response: %s", err),
		}
	}

	return translateResponse(&genResp, req.Model), nil
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
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(raw)
}
