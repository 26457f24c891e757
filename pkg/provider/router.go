package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/observability"
)

// route pairs a model-name marker with its provider family.
type route struct {
	marker   string
	provider Name
}

// DefaultRoutes is the ordered marker table. Matching is case-insensitive
// substring; first match wins, so order is part of the contract.
var DefaultRoutes = []struct {
	Marker   string
	Provider Name
}{
	{"gpt", OpenAI},
	{"claude", Anthropic},
	{"gemini", Google},
	{"command", Cohere},
}

// Router selects the adapter for a model identifier and dispatches the
// request with the gateway's upstream credential for that provider.
// It propagates adapter failures unchanged and never retries.
type Router struct {
	adapters map[Name]Adapter
	creds    map[Name]Credentials
	routes   []route
}

// NewRouter creates a router over the given adapters and per-provider
// credentials, using the default marker table.
func NewRouter(adapters []Adapter, creds map[Name]Credentials) *Router {
	r := &Router{
		adapters: make(map[Name]Adapter, len(adapters)),
		creds:    creds,
	}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	for _, dr := range DefaultRoutes {
		r.routes = append(r.routes, route{marker: dr.Marker, provider: dr.Provider})
	}
	return r
}

// Resolve returns the provider family for a model identifier, or
// ErrUnsupportedModel when no marker matches or no adapter is registered
// for the matching family.
func (r *Router) Resolve(model string) (Name, error) {
	lower := strings.ToLower(model)
	for _, rt := range r.routes {
		if strings.Contains(lower, rt.marker) {
			if _, ok := r.adapters[rt.provider]; !ok {
				return "", fmt.Errorf("%w: no adapter for provider %s", ErrUnsupportedModel, rt.provider)
			}
			return rt.provider, nil
		}
	}
	return "", ErrUnsupportedModel
}

// Route selects the adapter for req.Model and invokes it. The resolved
// provider name is returned even when the upstream call fails, so the
// audit trail can attribute the attempt.
func (r *Router) Route(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, Name, error) {
	name, err := r.Resolve(req.Model)
	if err != nil {
		return nil, "", err
	}

	adapter := r.adapters[name]
	creds := r.creds[name]

	start := time.Now()
	resp, err := adapter.Complete(ctx, req, creds)
	observability.ProviderLatency.WithLabelValues(string(name), req.Model).
		Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error"
		if ue, ok := err.(*UpstreamError); ok && ue.StatusCode != 0 {
			status = strconv.Itoa(ue.StatusCode)
		}
		observability.ProviderRequestsTotal.WithLabelValues(string(name), req.Model, status).Inc()
		return nil, name, err
	}

	observability.ProviderRequestsTotal.WithLabelValues(string(name), req.Model, "200").Inc()
	observability.ProviderTokensTotal.WithLabelValues(string(name), req.Model, "prompt").
		Add(float64(resp.Usage.PromptTokens))
	observability.ProviderTokensTotal.WithLabelValues(string(name), req.Model, "completion").
		Add(float64(resp.Usage.CompletionTokens))

	return resp, name, nil
}
