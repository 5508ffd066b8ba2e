// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the generation pipeline sends
// correct CompletionRequests and to feed controlled responses without a live
// backend. All fields are safe to set before calling any method; mutating them
// during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: "Hello!"},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CompleteResponse is returned by Complete. May be nil (returns nil, nil).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteFunc, if non-nil, takes precedence over CompleteResponse and
	// CompleteErr. Useful when different models must answer differently.
	CompleteFunc func(req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// EnsureErr, if non-nil, is returned by EnsureModel for every model.
	EnsureErr error

	// UnavailableModels lists models for which EnsureModel returns an error
	// wrapping llm.ErrModelUnavailable.
	UnavailableModels []string

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// EnsureCalls records the model passed to every EnsureModel call in order.
	EnsureCalls []string
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := make([]llm.Message, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	if p.CompleteFunc != nil {
		return p.CompleteFunc(req)
	}
	return p.CompleteResponse, p.CompleteErr
}

// EnsureModel records the call and reports availability.
func (p *Provider) EnsureModel(_ context.Context, model string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EnsureCalls = append(p.EnsureCalls, model)
	if p.EnsureErr != nil {
		return p.EnsureErr
	}
	for _, m := range p.UnavailableModels {
		if m == model {
			return fmtUnavailable(model)
		}
	}
	return nil
}

// Calls returns a snapshot of the recorded Complete calls. Thread-safe.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.EnsureCalls = nil
}

func fmtUnavailable(model string) error {
	return &unavailableError{model: model}
}

type unavailableError struct{ model string }

func (e *unavailableError) Error() string { return "mock: model " + e.model + " unavailable" }
func (e *unavailableError) Unwrap() error { return llm.ErrModelUnavailable }

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
