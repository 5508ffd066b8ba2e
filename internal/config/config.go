// Package config provides the configuration schema, loader and generation
// backend registry for vibeline.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Load] for fields left empty.
const (
	DefaultVoiceMemosDir  = "VoiceMemos"
	DefaultPluginsDir     = "plugins"
	DefaultVocabularyFile = "VOCABULARY.txt"
	DefaultOllamaHost     = "http://localhost:11434"
	DefaultModel          = "llama2"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 4000
	DefaultWorkers        = 2
	DefaultLLMProvider    = "ollama"
)

// Config is the root configuration structure. It is loaded from an optional
// YAML file and then overlaid with environment variables, see [Load].
type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Paths      PathsConfig      `yaml:"paths"`
	Generation GenerationConfig `yaml:"generation"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Batch      BatchConfig      `yaml:"batch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// PathsConfig locates the inputs and outputs on disk.
type PathsConfig struct {
	// VoiceMemosDir is the root of recordings, transcripts and artifacts.
	VoiceMemosDir string `yaml:"voice_memos_dir"`

	// PluginsDir holds one YAML file per plugin.
	PluginsDir string `yaml:"plugins_dir"`

	// VocabularyFiles are merged in order; later files override earlier ones.
	VocabularyFiles []string `yaml:"vocabulary_files"`
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	// DefaultModel is used by plugins without a model override.
	DefaultModel string `yaml:"default_model"`

	// SummaryModel writes the monthly summaries. Default: DefaultModel.
	SummaryModel string `yaml:"summary_model"`

	// Temperature is sent with every request. Default: 0.7.
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens caps completion length. Default: 4000.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds a single backend call. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// StructuredOutputPlugins name plugins whose command stdout is saved as
	// a .json artifact. Default: blossom_upload.
	StructuredOutputPlugins []string `yaml:"structured_output_plugins"`

	// CommandTimeout bounds a post-generation command. Zero means no limit.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// SensitiveEnv names extra environment variables to mask in logs.
	SensitiveEnv []string `yaml:"sensitive_env"`
}

// ProvidersConfig selects the generation backend and its fallbacks.
type ProvidersConfig struct {
	LLM       ProviderEntry   `yaml:"llm"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the configuration block of one backend. Name selects the
// constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend (e.g., "ollama", "openai").
	Name string `yaml:"name"`

	// APIKey authenticates against hosted backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint. For ollama this is
	// the server address.
	BaseURL string `yaml:"base_url"`

	// Model is informational for the primary backend; generation uses
	// generation.default_model or the plugin's override.
	Model string `yaml:"model"`

	// Options holds backend-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// VocabularyConfig controls transcript cleaning.
type VocabularyConfig struct {
	// Phonetic enables the sound-alike third pass.
	Phonetic bool `yaml:"phonetic"`

	// PhoneticThreshold is the minimum Jaro-Winkler score. Zero uses the
	// matcher's default.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}

// BatchConfig controls concurrent processing of many transcripts.
type BatchConfig struct {
	// Workers is the number of transcripts processed at once. Default: 2.
	Workers int `yaml:"workers"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics at /metrics.
	MetricsAddr string `yaml:"metrics_addr"`
}

// TemperatureOr returns the configured temperature, or def when unset.
func (g GenerationConfig) TemperatureOr(def float64) float64 {
	if g.Temperature == nil {
		return def
	}
	return *g.Temperature
}
