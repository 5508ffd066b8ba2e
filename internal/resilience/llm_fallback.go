package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that fails over across several backends.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback returns an LLMFallback preferring primary. Unless cfg sets
// its own filter, an unavailable model does not count against a backend's
// breaker: the backend is healthy, it just lacks that model.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	if cfg.CircuitBreaker.IsFailure == nil {
		cfg.CircuitBreaker.IsFailure = func(err error) bool {
			return CountsAsFailure(err) && !errors.Is(err, llm.ErrModelUnavailable)
		}
	}
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend, tried after all earlier ones.
func (f *LLMFallback) AddFallback(name string, p llm.Provider) {
	f.group.AddFallback(name, p)
}

// Backends returns the backend names in try order.
func (f *LLMFallback) Backends() []string { return f.group.Names() }

// Complete returns the first successful completion.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// EnsureModel succeeds when any backend can serve model. When none can and
// at least one reported the model as unavailable, the error wraps
// [llm.ErrModelUnavailable].
func (f *LLMFallback) EnsureModel(ctx context.Context, model string) error {
	return f.group.Execute(ctx, func(p llm.Provider) error {
		return p.EnsureModel(ctx, model)
	})
}
