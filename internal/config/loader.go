package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidLLMNames lists the backend names registered by the CLI. [Validate]
// warns about any other name.
var ValidLLMNames = []string{"ollama", "openai", "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// Environment variables overlaid on the file configuration.
const (
	EnvVoiceMemosDir = "VOICE_MEMOS_DIR"
	EnvVocabulary    = "VOCABULARY_FILE"
	EnvOllamaHost    = "OLLAMA_HOST"
	EnvModel         = "OLLAMA_EXTRACT_MODEL"
	EnvSummaryModel  = "OLLAMA_SUMMARY_MODEL"
	EnvLLMProvider   = "LLM_PROVIDER"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvPluginsDir    = "PLUGINS_DIR"
	EnvLogLevel      = "LOG_LEVEL"
)

// Load builds the effective configuration:
//
//  1. variables from dotenvPath (if the file exists) are added to the
//     process environment without replacing variables already set;
//  2. the YAML file at path is decoded, if it exists;
//  3. environment variables are overlaid;
//  4. defaults fill what is still empty and the result is validated.
//
// Empty paths skip their step. A missing file is not an error.
func Load(path, dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %q: %w", dotenvPath, err)
		}
	}

	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config: no config file, using environment and defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		default:
			defer f.Close()
			if err := decode(f, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates it. The environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables resolved by lookup onto cfg.
// VOCABULARY_FILE is appended to the vocabulary files so it overrides them.
// Backend variables apply to the primary backend they belong to.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = LogLevel(strings.ToLower(v))
	}
	if v, ok := get(EnvVoiceMemosDir); ok {
		cfg.Paths.VoiceMemosDir = v
	}
	if v, ok := get(EnvPluginsDir); ok {
		cfg.Paths.PluginsDir = v
	}
	if v, ok := get(EnvVocabulary); ok && !slices.Contains(cfg.Paths.VocabularyFiles, v) {
		cfg.Paths.VocabularyFiles = append(cfg.Paths.VocabularyFiles, v)
	}
	if v, ok := get(EnvModel); ok {
		cfg.Generation.DefaultModel = v
	}
	if v, ok := get(EnvSummaryModel); ok {
		cfg.Generation.SummaryModel = v
	}
	if v, ok := get(EnvLLMProvider); ok {
		cfg.Providers.LLM.Name = strings.ToLower(v)
	}

	switch cfg.Providers.LLM.Name {
	case "", "ollama":
		if v, ok := get(EnvOllamaHost); ok {
			cfg.Providers.LLM.BaseURL = v
		}
	case "openai":
		if v, ok := get(EnvOpenAIKey); ok {
			cfg.Providers.LLM.APIKey = v
		}
		if v, ok := get(EnvOpenAIBaseURL); ok {
			cfg.Providers.LLM.BaseURL = v
		}
	}
}

// ApplyDefaults fills empty fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Paths.VoiceMemosDir == "" {
		cfg.Paths.VoiceMemosDir = DefaultVoiceMemosDir
	}
	if cfg.Paths.PluginsDir == "" {
		cfg.Paths.PluginsDir = DefaultPluginsDir
	}
	if len(cfg.Paths.VocabularyFiles) == 0 {
		cfg.Paths.VocabularyFiles = []string{DefaultVocabularyFile}
	}
	if cfg.Generation.DefaultModel == "" {
		cfg.Generation.DefaultModel = DefaultModel
	}
	if cfg.Generation.SummaryModel == "" {
		cfg.Generation.SummaryModel = cfg.Generation.DefaultModel
	}
	if cfg.Generation.Temperature == nil {
		t := DefaultTemperature
		cfg.Generation.Temperature = &t
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = DefaultMaxTokens
	}
	if cfg.Generation.StructuredOutputPlugins == nil {
		cfg.Generation.StructuredOutputPlugins = []string{"blossom_upload"}
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM.Name = DefaultLLMProvider
	}
	if cfg.Providers.LLM.Name == "ollama" && cfg.Providers.LLM.BaseURL == "" {
		cfg.Providers.LLM.BaseURL = DefaultOllamaHost
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = DefaultWorkers
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if t := cfg.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("generation.temperature %.2f is out of range [0, 2]", *t))
	}
	if cfg.Generation.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("generation.max_tokens %d must not be negative", cfg.Generation.MaxTokens))
	}
	if cfg.Generation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("generation.timeout %s must not be negative", cfg.Generation.Timeout))
	}
	if cfg.Generation.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("generation.command_timeout %s must not be negative", cfg.Generation.CommandTimeout))
	}

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	validateProviderName("providers.llm", cfg.Providers.LLM)
	if cfg.Providers.LLM.Name == "openai" && cfg.Providers.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("providers.llm: openai requires an api_key (or %s)", EnvOpenAIKey))
	}
	seen := map[string]string{cfg.Providers.LLM.Name: "providers.llm"}
	for i, fb := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, dup := seen[fb.Name]; dup {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of %s", prefix, fb.Name, prev))
		}
		seen[fb.Name] = prefix
		validateProviderName(prefix, fb)
	}

	if th := cfg.Vocabulary.PhoneticThreshold; th < 0 || th > 1 {
		errs = append(errs, fmt.Errorf("vocabulary.phonetic_threshold %.2f is out of range [0, 1]", th))
	}
	if cfg.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers %d must not be negative", cfg.Batch.Workers))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning for a backend name outside
// [ValidLLMNames].
func validateProviderName(field string, entry ProviderEntry) {
	if entry.Name == "" || slices.Contains(ValidLLMNames, entry.Name) {
		return
	}
	slog.Warn("config: unknown backend name, may be a typo or third-party backend",
		"field", field,
		"name", entry.Name,
		"known", ValidLLMNames,
	)
}
