// Package ollama provides an LLM provider backed by a local or remote Ollama
// server through its native API.
//
// Unlike the hosted backends, Ollama can report whether a model is installed
// and download it on demand, so [Provider.EnsureModel] checks for the model
// and pulls it when missing.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// DefaultHost is the address a stock Ollama installation listens on.
const DefaultHost = "http://localhost:11434"

// Provider implements llm.Provider using the Ollama HTTP API.
type Provider struct {
	client *api.Client
	host   string
}

type config struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = c
	}
}

// WithTimeout sets a per-request HTTP timeout. Pulling a large model can take
// minutes, so leave this unset unless the server is known to have every model.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// New constructs a Provider talking to the Ollama server at host. An empty
// host means [DefaultHost]. A host without scheme is treated as http.
func New(host string, opts ...Option) (*Provider, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host %q: %w", host, err)
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.timeout > 0 {
		clone := *hc
		clone.Timeout = cfg.timeout
		hc = &clone
	}

	return &Provider{client: api.NewClient(base, hc), host: base.String()}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("ollama: model must not be empty")
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages),
		Stream:   &stream,
		Options:  buildOptions(req),
	}

	var (
		content strings.Builder
		usage   llm.Usage
	)
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			usage = llm.Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat with %q: %w", req.Model, err)
	}

	return &llm.CompletionResponse{Content: content.String(), Usage: usage}, nil
}

// EnsureModel implements llm.Provider. It asks the server about model and,
// when the server does not know it, pulls it. Progress is logged at debug
// level.
func (p *Provider) EnsureModel(ctx context.Context, model string) error {
	_, err := p.client.Show(ctx, &api.ShowRequest{Model: model})
	if err == nil {
		slog.Debug("ollama: model available", "model", model)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	slog.Info("ollama: model not found locally, pulling", "model", model, "host", p.host, "reason", err)
	var lastStatus string
	pullErr := p.client.Pull(ctx, &api.PullRequest{Model: model}, func(pr api.ProgressResponse) error {
		if pr.Status != lastStatus {
			slog.Debug("ollama: pull progress", "model", model, "status", pr.Status)
			lastStatus = pr.Status
		}
		return nil
	})
	if pullErr != nil {
		return fmt.Errorf("ollama: pull %q: %w", model, errors.Join(llm.ErrModelUnavailable, pullErr))
	}
	slog.Info("ollama: model pulled", "model", model)
	return nil
}

func convertMessages(msgs []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// buildOptions maps request tuning onto Ollama's model options. Zero values
// keep the model defaults.
func buildOptions(req llm.CompletionRequest) map[string]any {
	opts := map[string]any{}
	if req.Temperature != 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

var _ llm.Provider = (*Provider)(nil)
