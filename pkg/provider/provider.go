package provider

import (
	"context"

	"github.com/modelgate/modelgate/pkg/api"
)

// Name identifies an upstream provider family.
type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
	Google    Name = "google"
	Cohere    Name = "cohere"
)

// Credentials is the gateway's own upstream credential for one provider,
// resolved from process configuration. Callers never supply upstream keys.
type Credentials struct {
	APIKey string
}

// Adapter translates between the canonical chat schema and one provider's
// wire protocol. Implementations must not mutate the input ChatRequest and
// must be safe for concurrent use by multiple goroutines.
type Adapter interface {
	// Name returns the provider identifier.
	Name() Name

	// Complete sends the canonical request upstream and returns the
	// canonical response. Non-success upstream statuses yield an
	// *UpstreamError.
	Complete(ctx context.Context, req *api.ChatRequest, creds Credentials) (*api.ChatResponse, error)

	// Close releases adapter resources.
	Close() error
}
