package app

import (
	"fmt"

	"github.com/MrWong99/vibeline/internal/config"
	"github.com/MrWong99/vibeline/internal/resilience"
	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// NewBackend creates the configured generation backend through reg. When
// fallbacks are configured the primary and fallbacks are combined into a
// [resilience.LLMFallback] that tries them in order.
func NewBackend(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("app: primary backend: %w", err)
	}
	if len(cfg.Providers.Fallbacks) == 0 {
		return primary, nil
	}

	fb := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
	for i, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("app: fallback backend %d: %w", i, err)
		}
		fb.AddFallback(entry.Name, p)
	}
	return fb, nil
}
