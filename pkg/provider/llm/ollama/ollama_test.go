package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// fakeServer emulates the subset of the Ollama API the provider uses.
type fakeServer struct {
	mu        sync.Mutex
	installed map[string]bool
	pullFails bool
	pulled    []string
	lastChat  map[string]any
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		ok := f.installed[body.Model]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"model '`+body.Model+`' not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"modelfile":"FROM x"}`)
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.pullFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"pull model manifest: file does not exist"}`)
			return
		}
		f.pulled = append(f.pulled, body.Model)
		f.installed[body.Model] = true
		_, _ = io.WriteString(w, "{\"status\":\"pulling manifest\"}\n{\"status\":\"success\"}\n")
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode chat body: %v", err)
		}
		f.mu.Lock()
		f.lastChat = body
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"model":"llama2","message":{"role":"assistant","content":"  the summary  "},"done":true,"prompt_eval_count":12,"eval_count":30}`+"\n")
	})
	return mux
}

func newTestProvider(t *testing.T, f *fakeServer) *Provider {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestComplete(t *testing.T) {
	t.Parallel()

	f := &fakeServer{installed: map[string]bool{}}
	p := newTestProvider(t, f)

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:       "llama2",
		Messages:    []llm.Message{llm.UserMessage("hello")},
		Temperature: 0.5,
		MaxTokens:   100,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "  the summary  " {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 30 || resp.Usage.TotalTokens != 42 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastChat["model"] != "llama2" {
		t.Errorf("model sent = %v", f.lastChat["model"])
	}
	if f.lastChat["stream"] != false {
		t.Errorf("stream = %v, want false", f.lastChat["stream"])
	}
	opts, _ := f.lastChat["options"].(map[string]any)
	if opts["temperature"] != 0.5 {
		t.Errorf("temperature option = %v", opts["temperature"])
	}
	if opts["num_predict"] != float64(100) {
		t.Errorf("num_predict option = %v", opts["num_predict"])
	}
}

func TestComplete_EmptyModel(t *testing.T) {
	t.Parallel()
	p, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestEnsureModel_Installed(t *testing.T) {
	t.Parallel()

	f := &fakeServer{installed: map[string]bool{"llama2": true}}
	p := newTestProvider(t, f)

	if err := p.EnsureModel(context.Background(), "llama2"); err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if len(f.pulled) != 0 {
		t.Errorf("pulled = %v, want none", f.pulled)
	}
}

func TestEnsureModel_PullsMissing(t *testing.T) {
	t.Parallel()

	f := &fakeServer{installed: map[string]bool{}}
	p := newTestProvider(t, f)

	if err := p.EnsureModel(context.Background(), "mistral"); err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if len(f.pulled) != 1 || f.pulled[0] != "mistral" {
		t.Errorf("pulled = %v, want [mistral]", f.pulled)
	}
}

func TestEnsureModel_PullFails(t *testing.T) {
	t.Parallel()

	f := &fakeServer{installed: map[string]bool{}, pullFails: true}
	p := newTestProvider(t, f)

	err := p.EnsureModel(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, llm.ErrModelUnavailable) {
		t.Errorf("error %v does not wrap ErrModelUnavailable", err)
	}
}

func TestNew_HostWithoutScheme(t *testing.T) {
	t.Parallel()
	p, err := New("gpu-box:11434")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.host != "http://gpu-box:11434" {
		t.Errorf("host = %q", p.host)
	}
}
