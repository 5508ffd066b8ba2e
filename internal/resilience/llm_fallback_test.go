package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
	llmmock "github.com/MrWong99/vibeline/pkg/provider/llm/mock"
)

func newLLMFallback(primary, secondary *llmmock.Provider) *LLMFallback {
	fb := NewLLMFallback(primary, "ollama", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("openai", secondary)
	return fb
}

func TestLLMFallback_CompletePrimary(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "primary"}}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "secondary"}}
	fb := newLLMFallback(primary, secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{Model: "llama2"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "primary" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(secondary.Calls()) != 0 {
		t.Errorf("secondary called %d times", len(secondary.Calls()))
	}
	if got := fb.Backends(); len(got) != 2 || got[0] != "ollama" {
		t.Errorf("Backends() = %v", got)
	}
}

func TestLLMFallback_CompleteFailover(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errors.New("connection refused")}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "secondary"}}
	fb := newLLMFallback(primary, secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{Model: "llama2"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "secondary" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls := secondary.Calls(); len(calls) != 1 || calls[0].Req.Model != "llama2" {
		t.Errorf("secondary calls = %+v", calls)
	}
}

func TestLLMFallback_EnsureModelAnyBackend(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{UnavailableModels: []string{"gpt-4o"}}
	secondary := &llmmock.Provider{}
	fb := newLLMFallback(primary, secondary)

	if err := fb.EnsureModel(context.Background(), "gpt-4o"); err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if len(secondary.EnsureCalls) != 1 {
		t.Errorf("secondary EnsureCalls = %v", secondary.EnsureCalls)
	}

	// A missing model must not open the primary's breaker.
	cb, _ := fb.group.Breaker("ollama")
	if cb.State() != StateClosed {
		t.Errorf("primary breaker = %v, want closed", cb.State())
	}
}

func TestLLMFallback_EnsureModelNoBackend(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{UnavailableModels: []string{"mystery"}}
	secondary := &llmmock.Provider{UnavailableModels: []string{"mystery"}}
	err := newLLMFallback(primary, secondary).EnsureModel(context.Background(), "mystery")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, llm.ErrModelUnavailable) {
		t.Errorf("err = %v, want it to wrap llm.ErrModelUnavailable", err)
	}
}
