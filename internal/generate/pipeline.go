// Package generate turns active plugins into artifacts.
//
// For every active plugin the [Pipeline] renders the prompt template with the
// transcript and summary, asks the generation backend for a completion,
// writes the trimmed reply to the plugin's output file and finally runs the
// plugin's post-generation command. Plugins without a prompt skip straight
// to the command. An existing artifact is never overwritten unless the
// pipeline was built [WithOverwrite].
//
// Failures are per plugin: a failed generation or command is recorded in the
// [Report] and the remaining plugins still run. Only an unavailable default
// model aborts the run, and only when some plugin needs it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vibeline/internal/command"
	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/observe"
	"github.com/MrWong99/vibeline/internal/plugin"
	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// DefaultModel is used when neither the configuration nor the plugin names a
// model.
const DefaultModel = "llama2"

// DefaultStructuredPlugins lists the plugins whose command prints a JSON
// document worth keeping.
var DefaultStructuredPlugins = []string{"blossom_upload"}

// Input is one transcript to generate for.
type Input struct {
	// TranscriptPath names the artifacts and locates the audio file.
	TranscriptPath string

	// Transcript is the (possibly cleaned) transcript text.
	Transcript string

	// Summary fills {summary}; empty when none exists.
	Summary string
}

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithDefaultModel sets the model used by plugins without an override.
func WithDefaultModel(model string) Option {
	return func(p *Pipeline) {
		if m := strings.TrimSpace(model); m != "" {
			p.defaultModel = m
		}
	}
}

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) Option {
	return func(p *Pipeline) {
		p.temperature = t
	}
}

// WithMaxTokens caps completion length. Zero leaves it to the backend.
func WithMaxTokens(n int) Option {
	return func(p *Pipeline) {
		p.maxTokens = n
	}
}

// WithTimeout bounds each backend call. Expiry fails only that plugin.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithOverwrite replaces existing artifacts instead of keeping them.
func WithOverwrite(overwrite bool) Option {
	return func(p *Pipeline) {
		p.overwrite = overwrite
	}
}

// WithStructuredPlugins replaces the set of plugins whose successful command
// stdout is saved as a .json artifact.
func WithStructuredPlugins(names ...string) Option {
	return func(p *Pipeline) {
		p.structured = make(map[string]struct{}, len(names))
		for _, n := range names {
			p.structured[n] = struct{}{}
		}
	}
}

// WithRunner sets the command runner. Default: command.NewRunner().
func WithRunner(r *command.Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithEnvLookup sets how $NAME tokens in commands are resolved. Default:
// os.LookupEnv.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(p *Pipeline) {
		p.lookup = lookup
	}
}

// WithSensitiveEnv adds variable names whose values are masked in logs, on
// top of the built-in credential markers.
func WithSensitiveEnv(names ...string) Option {
	return func(p *Pipeline) {
		p.sensitive = command.SensitiveFunc(names)
	}
}

// WithMetrics sets the metrics sink. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline generates artifacts for active plugins. Its configuration is
// read-only after construction, so one Pipeline may serve several
// transcripts concurrently as long as their artifact paths differ.
type Pipeline struct {
	backend      llm.Provider
	layout       layout.Layout
	runner       *command.Runner
	defaultModel string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	overwrite    bool
	structured   map[string]struct{}
	lookup       func(string) (string, bool)
	sensitive    func(string) bool
	metrics      *observe.Metrics
}

// New returns a Pipeline that generates through backend and writes under l.
func New(backend llm.Provider, l layout.Layout, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:      backend,
		layout:       l,
		defaultModel: DefaultModel,
		lookup:       os.LookupEnv,
		sensitive:    command.SensitiveFunc(nil),
	}
	WithStructuredPlugins(DefaultStructuredPlugins...)(p)
	for _, o := range opts {
		o(p)
	}
	if p.runner == nil {
		p.runner = command.NewRunner()
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// DefaultModelName returns the model used by plugins without an override.
func (p *Pipeline) DefaultModelName() string { return p.defaultModel }

// Render substitutes {transcript} and {summary} in template. Nothing else is
// interpreted, and substituted text is not scanned again.
func Render(template, transcript, summary string) string {
	return strings.NewReplacer("{transcript}", transcript, "{summary}", summary).Replace(template)
}

// Prepare makes sure every model that will be used for in is available,
// calling EnsureModel once per distinct model. Plugins without a prompt and
// plugins whose artifact will be kept need no model.
//
// When the default model is needed and unavailable, Prepare returns an error
// wrapping [ErrBackendUnavailable]. An unavailable override model is not
// fatal: it is returned in the map, keyed by model, and only the plugins
// using it fail.
func (p *Pipeline) Prepare(ctx context.Context, in Input, defs []plugin.Definition) (map[string]error, error) {
	log := observe.Logger(ctx)
	checked := make(map[string]error)
	for _, def := range defs {
		if !p.needsGeneration(def, in) {
			continue
		}
		model := def.ModelOr(p.defaultModel)
		if _, done := checked[model]; done {
			continue
		}
		err := p.backend.EnsureModel(ctx, model)
		checked[model] = err
		if err == nil {
			continue
		}
		if model == p.defaultModel {
			return nil, fmt.Errorf("%w: model %q: %w", ErrBackendUnavailable, model, err)
		}
		log.Warn("generate: override model unavailable", "model", model, "plugin", def.Name, "err", err)
	}

	unavailable := make(map[string]error)
	for model, err := range checked {
		if err != nil {
			unavailable[model] = err
		}
	}
	return unavailable, nil
}

// Run processes defs in order for in and returns one Result per plugin. The
// returned error is non-nil only for fatal conditions (see [Pipeline.Prepare]
// and output directory creation); per-plugin failures live in the Report.
func (p *Pipeline) Run(ctx context.Context, in Input, defs []plugin.Definition) (Report, error) {
	ctx, span := observe.StartSpan(ctx, "generate.Run",
		trace.WithAttributes(attribute.String("transcript", in.TranscriptPath)))
	defer span.End()

	unavailable, err := p.Prepare(ctx, in, defs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend unavailable")
		return Report{}, err
	}

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	if err := p.layout.EnsurePluginDirs(names); err != nil {
		return Report{}, fmt.Errorf("generate: %w", err)
	}

	report := Report{Results: make([]Result, 0, len(defs))}
	for _, def := range defs {
		res := p.runPlugin(ctx, in, def, unavailable)
		p.metrics.RecordGenerationResult(ctx, def.Name, string(res.Status))
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// Generate renders def's prompt and returns the backend's trimmed reply.
func (p *Pipeline) Generate(ctx context.Context, def plugin.Definition, transcript, summary string) (string, error) {
	model := def.ModelOr(p.defaultModel)
	req := llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{llm.UserMessage(Render(def.Prompt, transcript, summary))},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.backend.Complete(ctx, req)
	p.metrics.RecordGeneration(ctx, def.Name, model, time.Since(start))
	if err != nil {
		return "", &GenerationError{Plugin: def.Name, Model: model, Err: err}
	}
	if resp == nil {
		return "", &GenerationError{Plugin: def.Name, Model: model, Err: errors.New("empty response")}
	}
	p.metrics.RecordTokens(ctx, model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Content), nil
}

func (p *Pipeline) runPlugin(ctx context.Context, in Input, def plugin.Definition, unavailable map[string]error) Result {
	ctx, span := observe.StartSpan(ctx, "generate.plugin",
		trace.WithAttributes(attribute.String("plugin", def.Name)))
	defer span.End()
	log := observe.Logger(ctx).With("plugin", def.Name)

	artifact := p.layout.ArtifactPath(def.Name, in.TranscriptPath, def.OutputExtension)
	res := Result{Plugin: def.Name, ArtifactPath: artifact}

	switch {
	case !def.HasPrompt():
		res.Status = StatusCommandOnly
	case !p.overwrite && exists(artifact):
		log.Info("generate: keeping existing artifact", "path", artifact)
		res.Status = StatusKeptExisting
	default:
		if err := p.generateArtifact(ctx, in, def, artifact, unavailable); err != nil {
			log.Error("generate: generation failed", "err", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			res.Status = StatusFailed
			res.Err = err
			return res
		}
		log.Info("generate: artifact written", "path", artifact)
		res.Status = StatusGenerated
	}

	if def.HasCommand() {
		p.runCommand(ctx, in, def, &res)
	}
	return res
}

func (p *Pipeline) generateArtifact(ctx context.Context, in Input, def plugin.Definition, artifact string, unavailable map[string]error) error {
	model := def.ModelOr(p.defaultModel)
	if err, ok := unavailable[model]; ok {
		return &GenerationError{Plugin: def.Name, Model: model, Err: err}
	}
	text, err := p.Generate(ctx, def, in.Transcript, in.Summary)
	if err != nil {
		return err
	}
	if err := writeFile(artifact, text); err != nil {
		return &GenerationError{Plugin: def.Name, Model: model, Err: err}
	}
	return nil
}

func (p *Pipeline) runCommand(ctx context.Context, in Input, def plugin.Definition, res *Result) {
	log := observe.Logger(ctx).With("plugin", def.Name)

	rendered, err := command.Build(def.Command, command.Context{
		TranscriptPath: in.TranscriptPath,
		ArtifactPath:   res.ArtifactPath,
		Lookup:         p.lookup,
		Sensitive:      p.sensitive,
	})
	if err != nil {
		log.Warn("generate: skipping command", "err", err)
		res.CommandSkipped = true
		res.CommandErr = err
		p.metrics.RecordCommand(ctx, def.Name, "skipped", 0)
		return
	}

	out, err := p.runner.Run(ctx, rendered)
	res.Command = &out
	if err != nil {
		res.CommandErr = err
		log.Error("generate: command failed",
			"cmd", rendered.Display,
			"exit_code", out.ExitCode,
			"stdout", out.Stdout,
			"stderr", out.Stderr,
			"err", err,
		)
		p.metrics.RecordCommand(ctx, def.Name, "failed", out.Duration)
		return
	}
	log.Info("generate: command succeeded", "cmd", rendered.Display)
	p.metrics.RecordCommand(ctx, def.Name, "ok", out.Duration)

	if _, ok := p.structured[def.Name]; ok && strings.TrimSpace(out.Stdout) != "" {
		path := p.layout.JSONPath(def.Name, in.TranscriptPath)
		if err := writeFile(path, out.Stdout); err != nil {
			log.Error("generate: saving structured output failed", "path", path, "err", err)
			return
		}
		res.JSONPath = path
		log.Info("generate: structured output saved", "path", path)
	}
}

func (p *Pipeline) needsGeneration(def plugin.Definition, in Input) bool {
	if !def.HasPrompt() {
		return false
	}
	if p.overwrite {
		return true
	}
	return !exists(p.layout.ArtifactPath(def.Name, in.TranscriptPath, def.OutputExtension))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
