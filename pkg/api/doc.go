// Package api defines the provider-neutral chat schema shared by the
// gateway's transport layer and provider adapters, along with the error
// taxonomy returned to callers.
//
// All adapters translate ChatRequest into their upstream wire format and
// translate the upstream reply back into ChatResponse. The Usage invariant
// (TotalTokens = PromptTokens + CompletionTokens) is enforced at translation
// time, never trusted from upstream.
package api
