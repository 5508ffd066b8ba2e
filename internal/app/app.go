// Package app wires the vibeline subsystems into the per-transcript flow:
// clean with the vocabulary, activate plugins, generate artifacts and run
// their commands.
//
// Plugins and vocabulary files are re-read for every transcript so edits
// take effect on the next run without restarting a batch.
//
// For testing, inject doubles via functional options (WithMetrics,
// WithEnvLookup, WithRunner). When an option is not provided, New derives the
// real implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MrWong99/vibeline/internal/activation"
	"github.com/MrWong99/vibeline/internal/command"
	"github.com/MrWong99/vibeline/internal/config"
	"github.com/MrWong99/vibeline/internal/generate"
	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/observe"
	"github.com/MrWong99/vibeline/internal/plugin"
	"github.com/MrWong99/vibeline/internal/vocabulary"
	"github.com/MrWong99/vibeline/internal/vocabulary/phonetic"
	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// ErrNoPlugins is returned when the plugins directory holds no definitions.
var ErrNoPlugins = errors.New("app: no plugins found")

// Transcript status values recorded in metrics.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// App processes transcripts against the configured plugins and backend.
// It is safe for concurrent use.
type App struct {
	cfg     *config.Config
	backend llm.Provider
	layout  layout.Layout
	metrics *observe.Metrics
	lookup  func(string) (string, bool)
	runner  *command.Runner

	progress progress
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics records into m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithEnvLookup resolves command environment placeholders through lookup
// instead of the process environment.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(a *App) { a.lookup = lookup }
}

// WithRunner executes post-generation commands with r.
func WithRunner(r *command.Runner) Option {
	return func(a *App) { a.runner = r }
}

// New creates an App. backend must not be nil.
func New(cfg *config.Config, backend llm.Provider, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if backend == nil {
		return nil, errors.New("app: generation backend must not be nil")
	}
	a := &App{
		cfg:     cfg,
		backend: backend,
		layout:  layout.New(cfg.Paths.VoiceMemosDir),
		lookup:  os.LookupEnv,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.runner == nil {
		a.runner = command.NewRunner(command.WithTimeout(cfg.Generation.CommandTimeout))
	}
	return a, nil
}

// Layout returns the output layout rooted at the voice memos directory.
func (a *App) Layout() layout.Layout { return a.layout }

// LoadPlugins reads the plugin registry from the configured directory.
// An empty registry yields [ErrNoPlugins].
func (a *App) LoadPlugins() (*plugin.Registry, error) {
	reg, err := plugin.Load(a.cfg.Paths.PluginsDir)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoPlugins, a.cfg.Paths.PluginsDir)
	}
	return reg, nil
}

// NewCorrector loads the vocabulary files named in cfg and returns a
// corrector for them. The phonetic pass is enabled when configured.
func NewCorrector(cfg *config.Config) (*vocabulary.Corrector, vocabulary.Rules, error) {
	rules, err := vocabulary.LoadFiles(cfg.Paths.VocabularyFiles...)
	if err != nil {
		return nil, rules, fmt.Errorf("app: load vocabulary: %w", err)
	}
	var opts []vocabulary.Option
	if cfg.Vocabulary.Phonetic {
		opts = append(opts, vocabulary.WithPhoneticMatcher(
			phonetic.New(phonetic.WithThreshold(cfg.Vocabulary.PhoneticThreshold)),
		))
	}
	return vocabulary.New(rules, opts...), rules, nil
}

// Clean applies the vocabulary to text.
func (a *App) Clean(text string) (string, []vocabulary.CorrectionRecord, error) {
	c, _, err := NewCorrector(a.cfg)
	if err != nil {
		return text, nil, err
	}
	cleaned, records := c.Clean(text)
	return cleaned, records, nil
}

// ProcessOptions controls a single transcript run.
type ProcessOptions struct {
	// Force regenerates artifacts that already exist.
	Force bool

	// NoClean skips the vocabulary pass.
	NoClean bool
}

// Outcome describes what processing one transcript did.
type Outcome struct {
	Transcript  string
	CleanedPath string
	Corrections []vocabulary.CorrectionRecord
	Active      []string
	Report      generate.Report
}

// Status summarises the outcome for metrics and logs.
func (o *Outcome) Status() string {
	if o == nil {
		return StatusFailed
	}
	if len(o.Report.Failed()) > 0 {
		return StatusPartial
	}
	return StatusOK
}

// Process runs the full flow for the transcript at path. Per-plugin failures
// are reported in the Outcome and do not make Process fail; the returned
// error is reserved for problems that stop the transcript as a whole.
func (a *App) Process(ctx context.Context, path string, opts ProcessOptions) (out *Outcome, err error) {
	start := time.Now()
	a.metrics.ActiveTranscripts.Add(ctx, 1)
	defer func() {
		a.metrics.ActiveTranscripts.Add(ctx, -1)
		status := out.Status()
		if err != nil {
			status = StatusFailed
		}
		a.metrics.RecordTranscript(ctx, status, time.Since(start))
	}()

	ctx, span := observe.StartSpan(ctx, "app.process")
	defer span.End()
	log := observe.Logger(ctx).With("transcript", path)

	reg, err := a.LoadPlugins()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read transcript: %w", err)
	}
	out = &Outcome{Transcript: string(data)}

	if !opts.NoClean {
		if err := a.clean(ctx, path, out); err != nil {
			return nil, err
		}
	}

	if err := a.layout.EnsurePluginDirs(reg.Names()); err != nil {
		return nil, err
	}

	summary, err := a.layout.ReadSummary(path)
	if err != nil {
		return nil, err
	}

	active := activation.ActivateContext(ctx, out.Transcript, reg, a.metrics)
	out.Active = active.Sorted()
	if len(out.Active) == 0 {
		log.Info("no plugins matched")
		return out, nil
	}
	defs := make([]plugin.Definition, 0, len(out.Active))
	for _, name := range out.Active {
		if def, ok := reg.Get(name); ok {
			defs = append(defs, def)
		}
	}
	log.Info("plugins activated", "plugins", out.Active)

	report, err := a.pipeline(opts).Run(ctx, generate.Input{
		TranscriptPath: path,
		Transcript:     out.Transcript,
		Summary:        summary,
	}, defs)
	out.Report = report
	if err != nil {
		return out, err
	}
	for _, r := range report.Failed() {
		log.Warn("plugin failed", "plugin", r.Plugin, "status", r.Status, "err", r.Err, "command_err", r.CommandErr)
	}
	return out, nil
}

// clean replaces out.Transcript with its corrected form and writes the
// cleaned copy beside the transcript when anything changed.
func (a *App) clean(ctx context.Context, path string, out *Outcome) error {
	log := observe.Logger(ctx).With("transcript", path)

	c, rules, err := NewCorrector(a.cfg)
	if err != nil {
		return err
	}
	if rules.Len() == 0 {
		log.Debug("no vocabulary rules, skipping cleaning")
		return nil
	}

	cleaned, records := c.Clean(out.Transcript)
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		log.Info("vocabulary correction", "line", r.LineNumber, "original", r.Original, "corrected", r.Corrected)
	}
	a.metrics.RecordCorrections(ctx, len(records))

	cleanedPath := layout.CleanedPath(path)
	if err := os.WriteFile(cleanedPath, []byte(cleaned), 0o644); err != nil {
		return fmt.Errorf("app: write cleaned transcript: %w", err)
	}
	out.Transcript = cleaned
	out.CleanedPath = cleanedPath
	out.Corrections = records
	return nil
}

func (a *App) pipeline(opts ProcessOptions) *generate.Pipeline {
	g := a.cfg.Generation
	return generate.New(a.backend, a.layout,
		generate.WithDefaultModel(g.DefaultModel),
		generate.WithTemperature(g.TemperatureOr(config.DefaultTemperature)),
		generate.WithMaxTokens(g.MaxTokens),
		generate.WithTimeout(g.Timeout),
		generate.WithOverwrite(opts.Force),
		generate.WithStructuredPlugins(g.StructuredOutputPlugins...),
		generate.WithRunner(a.runner),
		generate.WithEnvLookup(a.lookup),
		generate.WithSensitiveEnv(g.SensitiveEnv...),
		generate.WithMetrics(a.metrics),
	)
}
