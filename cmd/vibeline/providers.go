package main

import (
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/vibeline/internal/config"
	"github.com/MrWong99/vibeline/pkg/provider/llm"
	"github.com/MrWong99/vibeline/pkg/provider/llm/anyllm"
	"github.com/MrWong99/vibeline/pkg/provider/llm/ollama"
	"github.com/MrWong99/vibeline/pkg/provider/llm/openai"
)

// registerBuiltinProviders wires all built-in backend factories into reg.
//
// ollama and openai use the native clients; the remaining hosted backends go
// through any-llm-go and share the same pattern: optional APIKey + optional
// BaseURL.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []ollama.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, ollama.WithTimeout(d))
		}
		return ollama.New(entry.BaseURL, opts...)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, opts...)
	})

	for _, providerName := range anyllm.Supported {
		if providerName == "ollama" || providerName == "openai" {
			continue
		}
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, opts...)
		})
	}

	for _, name := range reg.LLMNames() {
		slog.Debug("registered backend", "name", name)
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optDuration parses a duration string such as "90s" from opts. Invalid or
// missing values yield 0.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring invalid duration option", "key", key, "value", s, "err", err)
		return 0
	}
	return d
}
