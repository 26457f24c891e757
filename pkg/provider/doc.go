// Package provider defines the adapter contract for upstream inference
// backends and the router that selects an adapter from a model identifier.
//
// Each adapter subpackage (openai, anthropic, googleai, cohere) owns the
// full bidirectional translation between the canonical chat schema and its
// provider's wire format: splitting out system turns where the provider
// wants them separate, renaming role tokens, injecting provider defaults,
// mapping token-usage field names, and passing finish reasons through as
// opaque strings.
package provider
