package anyllm

import (
	"context"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// ── buildParams ───────────────────────────────────────────────────────────────

func TestBuildParams(t *testing.T) {
	t.Parallel()

	params := buildParams(llm.CompletionRequest{
		Model:       "claude-3-5-haiku-latest",
		Messages:    []llm.Message{llm.UserMessage("Summarize this")},
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(params.Messages))
	}
	if params.Messages[0].Role != "user" {
		t.Errorf("role = %q, want user", params.Messages[0].Role)
	}
	if params.Messages[0].ContentString() != "Summarize this" {
		t.Errorf("content = %q", params.Messages[0].ContentString())
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 4000 {
		t.Errorf("max tokens = %v, want 4000", params.MaxTokens)
	}
}

func TestBuildParams_ZeroOptionalsOmitted(t *testing.T) {
	t.Parallel()

	params := buildParams(llm.CompletionRequest{Model: "m"})
	if params.Temperature != nil {
		t.Error("temperature should be nil when zero")
	}
	if params.MaxTokens != nil {
		t.Error("max tokens should be nil when zero")
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_EmptyProviderName(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty providerName")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	t.Parallel()
	if _, err := New("fakecloud", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestNew_OpenAI_MissingAPIKey relies on OPENAI_API_KEY being cleared.
func TestNew_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai"); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name string
		opts []anyllmlib.Option
	}{
		{"openai", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-test")}},
		{"Anthropic", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-ant-test")}},
		{"ollama", nil},
		{"llamacpp", nil},
		{"llamafile", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name, tt.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p == nil {
				t.Fatal("expected non-nil provider")
			}
		})
	}
}

func TestComplete_EmptyModel(t *testing.T) {
	t.Parallel()

	p, err := New("ollama")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestEnsureModel_AlwaysAvailable(t *testing.T) {
	t.Parallel()

	p, err := New("ollama")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.EnsureModel(context.Background(), "llama2"); err != nil {
		t.Errorf("EnsureModel: %v", err)
	}
}
