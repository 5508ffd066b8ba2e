package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/vibeline/internal/config"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Paths.VoiceMemosDir != "VoiceMemos" || cfg.Paths.PluginsDir != "plugins" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if !reflect.DeepEqual(cfg.Paths.VocabularyFiles, []string{"VOCABULARY.txt"}) {
		t.Errorf("VocabularyFiles = %v", cfg.Paths.VocabularyFiles)
	}
	if cfg.Generation.DefaultModel != "llama2" || cfg.Generation.MaxTokens != 4000 {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if cfg.Generation.SummaryModel != "llama2" {
		t.Errorf("SummaryModel = %q, want llama2", cfg.Generation.SummaryModel)
	}
	if got := cfg.Generation.TemperatureOr(0); got != 0.7 {
		t.Errorf("temperature = %v, want 0.7", got)
	}
	if !reflect.DeepEqual(cfg.Generation.StructuredOutputPlugins, []string{"blossom_upload"}) {
		t.Errorf("StructuredOutputPlugins = %v", cfg.Generation.StructuredOutputPlugins)
	}
	if cfg.Providers.LLM.Name != "ollama" || cfg.Providers.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("LLM = %+v", cfg.Providers.LLM)
	}
	if cfg.Batch.Workers != 2 {
		t.Errorf("Workers = %d", cfg.Batch.Workers)
	}
}

func TestLoadFromReader_FullFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(`
log_level: debug
paths:
  voice_memos_dir: /data/memos
  plugins_dir: /data/plugins
  vocabulary_files: [base.txt, personal.txt]
generation:
  default_model: mistral
  temperature: 0
  max_tokens: 512
  timeout: 2m
  command_timeout: 30s
  structured_output_plugins: []
  sensitive_env: [MY_PASS]
providers:
  llm:
    name: ollama
    base_url: http://gpu-box:11434
  fallbacks:
    - name: openai
      api_key: sk-test
vocabulary:
  phonetic: true
  phonetic_threshold: 0.85
batch:
  workers: 4
telemetry:
  metrics_addr: ":9090"
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Generation.TemperatureOr(1) != 0 {
		t.Errorf("explicit zero temperature lost: %v", cfg.Generation.TemperatureOr(1))
	}
	if cfg.Generation.Timeout != 2*time.Minute || cfg.Generation.CommandTimeout != 30*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.Generation.Timeout, cfg.Generation.CommandTimeout)
	}
	if len(cfg.Generation.StructuredOutputPlugins) != 0 {
		t.Errorf("explicit empty structured list replaced: %v", cfg.Generation.StructuredOutputPlugins)
	}
	if cfg.Providers.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q", cfg.Providers.LLM.BaseURL)
	}
	if len(cfg.Providers.Fallbacks) != 1 || cfg.Providers.Fallbacks[0].APIKey != "sk-test" {
		t.Errorf("Fallbacks = %+v", cfg.Providers.Fallbacks)
	}
	if !cfg.Vocabulary.Phonetic || cfg.Vocabulary.PhoneticThreshold != 0.85 {
		t.Errorf("Vocabulary = %+v", cfg.Vocabulary)
	}
	if cfg.Batch.Workers != 4 || cfg.Telemetry.MetricsAddr != ":9090" {
		t.Errorf("Batch/Telemetry = %+v / %+v", cfg.Batch, cfg.Telemetry)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("generaton:\n  default_model: x\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Paths: config.PathsConfig{VocabularyFiles: []string{"base.txt"}}}
	config.ApplyEnv(cfg, envMap(map[string]string{
		"VOICE_MEMOS_DIR":      "/memos",
		"PLUGINS_DIR":          "/plugins",
		"VOCABULARY_FILE":      "personal.txt",
		"OLLAMA_EXTRACT_MODEL": "qwen2",
		"OLLAMA_HOST":          "gpu:11434",
		"LOG_LEVEL":            "DEBUG",
		"OPENAI_API_KEY":       "ignored-for-ollama",
	}))

	if cfg.Paths.VoiceMemosDir != "/memos" || cfg.Paths.PluginsDir != "/plugins" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if !reflect.DeepEqual(cfg.Paths.VocabularyFiles, []string{"base.txt", "personal.txt"}) {
		t.Errorf("VocabularyFiles = %v", cfg.Paths.VocabularyFiles)
	}
	if cfg.Generation.DefaultModel != "qwen2" || cfg.LogLevel != config.LogDebug {
		t.Errorf("model/log = %q/%q", cfg.Generation.DefaultModel, cfg.LogLevel)
	}
	if cfg.Providers.LLM.BaseURL != "gpu:11434" || cfg.Providers.LLM.APIKey != "" {
		t.Errorf("LLM = %+v", cfg.Providers.LLM)
	}
}

func TestSummaryModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"default", nil, "llama2"},
		{"falls back to extract model", map[string]string{"OLLAMA_EXTRACT_MODEL": "qwen2"}, "qwen2"},
		{"own variable", map[string]string{"OLLAMA_EXTRACT_MODEL": "qwen2", "OLLAMA_SUMMARY_MODEL": "mistral"}, "mistral"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{}
			config.ApplyEnv(cfg, envMap(tt.env))
			config.ApplyDefaults(cfg)
			if cfg.Generation.SummaryModel != tt.want {
				t.Errorf("SummaryModel = %q, want %q", cfg.Generation.SummaryModel, tt.want)
			}
		})
	}
}

func TestApplyEnv_OpenAI(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyEnv(cfg, envMap(map[string]string{
		"LLM_PROVIDER":    "OpenAI",
		"OPENAI_API_KEY":  "sk-abc",
		"OPENAI_BASE_URL": "http://localhost:8000/v1",
		"OLLAMA_HOST":     "ignored",
	}))
	want := config.ProviderEntry{Name: "openai", APIKey: "sk-abc", BaseURL: "http://localhost:8000/v1"}
	if !reflect.DeepEqual(cfg.Providers.LLM, want) {
		t.Errorf("LLM = %+v, want %+v", cfg.Providers.LLM, want)
	}
}

func TestApplyEnv_BlankValuesIgnored(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Paths: config.PathsConfig{VoiceMemosDir: "keep"}}
	config.ApplyEnv(cfg, envMap(map[string]string{"VOICE_MEMOS_DIR": "  "}))
	if cfg.Paths.VoiceMemosDir != "keep" {
		t.Errorf("VoiceMemosDir = %q", cfg.Paths.VoiceMemosDir)
	}
}

func TestLoad_FileDotenvAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vibeline.yaml")
	if err := os.WriteFile(cfgPath, []byte("paths:\n  voice_memos_dir: from-file\n  plugins_dir: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PLUGINS_DIR=from-dotenv\nOLLAMA_EXTRACT_MODEL=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Real environment wins over .env, which never overrides set variables.
	t.Setenv("OLLAMA_EXTRACT_MODEL", "from-env")
	t.Setenv("PLUGINS_DIR", "")
	os.Unsetenv("PLUGINS_DIR")
	t.Setenv("VOICE_MEMOS_DIR", "")

	cfg, err := config.Load(cfgPath, envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.VoiceMemosDir != "from-file" {
		t.Errorf("VoiceMemosDir = %q, want from-file", cfg.Paths.VoiceMemosDir)
	}
	if cfg.Paths.PluginsDir != "from-dotenv" {
		t.Errorf("PluginsDir = %q, want from-dotenv", cfg.Paths.PluginsDir)
	}
	if cfg.Generation.DefaultModel != "from-env" {
		t.Errorf("DefaultModel = %q, want from-env", cfg.Generation.DefaultModel)
	}
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	for _, k := range []string{"VOICE_MEMOS_DIR", "LLM_PROVIDER", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"), filepath.Join(dir, "absent.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.VoiceMemosDir != "VoiceMemos" {
		t.Errorf("VoiceMemosDir = %q", cfg.Paths.VoiceMemosDir)
	}
}
