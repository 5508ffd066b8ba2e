// Package llm defines the Provider interface for text-generation backends.
//
// A provider wraps a remote or local model API (a local Ollama instance, the
// OpenAI API or any OpenAI-compatible server, Anthropic, Gemini, ...) and
// exposes the two operations the generation pipeline needs: a chat completion
// against a named model, and a way to make sure that model is available before
// any generation starts.
//
// The model is chosen per request rather than per provider instance because
// plugins may override the globally configured model.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned by [Provider.EnsureModel] when the backend
// cannot provide the requested model. Implementations wrap it with details.
var ErrModelUnavailable = errors.New("llm: model unavailable")

// Usage holds token accounting information returned by the backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the backend needs to produce a
// response. At minimum Model and Messages must be set.
type CompletionRequest struct {
	// Model names the backend model to use (e.g., "llama2", "gpt-4o-mini").
	Model string

	// Messages is the ordered conversation. The generation pipeline sends a
	// single "user" message carrying the rendered prompt.
	Messages []Message

	// Temperature controls output randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider
	// default.
	MaxTokens int
}

// CompletionResponse is returned by [Provider.Complete].
type CompletionResponse struct {
	// Content is the full text of the assistant's reply, as returned by the
	// backend. Callers decide whether to trim it.
	Content string

	// Usage contains token accounting for this request/response pair. It is
	// zero when the backend does not report usage.
	Usage Usage
}

// Provider is the abstraction over any text-generation backend.
//
// Each method should propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the backend and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// EnsureModel verifies that model can be served, pulling it first when
	// the backend supports that (e.g., Ollama). Backends without a way to
	// check availability return nil and let the first request fail instead.
	// An unavailable model is reported as an error wrapping
	// [ErrModelUnavailable].
	EnsureModel(ctx context.Context, model string) error
}
