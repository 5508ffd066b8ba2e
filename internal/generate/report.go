package generate

import (
	"errors"
	"fmt"

	"github.com/MrWong99/vibeline/internal/command"
)

// ErrBackendUnavailable is returned by [Pipeline.Prepare] and [Pipeline.Run]
// when the default model cannot be made available and at least one plugin
// needs it. It is the only generation error that aborts a whole run.
var ErrBackendUnavailable = errors.New("generate: generation backend unavailable")

// GenerationError reports a failed generation for a single plugin. Other
// plugins are unaffected.
type GenerationError struct {
	Plugin string
	Model  string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate: plugin %q (model %q): %v", e.Plugin, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Status describes what happened to a plugin's artifact.
type Status string

const (
	// StatusGenerated means the backend produced a new artifact.
	StatusGenerated Status = "generated"

	// StatusKeptExisting means an artifact already existed and overwrite was
	// off, so generation was skipped.
	StatusKeptExisting Status = "kept_existing"

	// StatusCommandOnly means the plugin has no prompt.
	StatusCommandOnly Status = "command_only"

	// StatusFailed means generation was attempted and failed.
	StatusFailed Status = "failed"
)

// Result is the outcome for one active plugin.
type Result struct {
	Plugin string
	Status Status

	// ArtifactPath is where the artifact was (or would have been) written.
	ArtifactPath string

	// JSONPath is set when structured command output was persisted.
	JSONPath string

	// Err is the generation error, a *GenerationError, when Status is
	// StatusFailed.
	Err error

	// Command is the captured command outcome; nil when no command ran.
	Command *command.Result

	// CommandSkipped is true when the command could not be rendered, e.g.
	// because AUDIO_FILE had no matching audio file.
	CommandSkipped bool

	// CommandErr is the command's error: a *command.Failure, an error
	// wrapping command.ErrNotFound, or a skip reason wrapping
	// command.ErrUnresolvedAudio.
	CommandErr error
}

// OK reports whether both generation and command, where attempted, succeeded.
// A skipped command does not count as a failure.
func (r Result) OK() bool {
	return r.Err == nil && (r.CommandErr == nil || r.CommandSkipped)
}

// Report collects one Result per active plugin, in processing order.
type Report struct {
	Results []Result
}

// Get returns the result for plugin.
func (r Report) Get(plugin string) (Result, bool) {
	for _, res := range r.Results {
		if res.Plugin == plugin {
			return res, true
		}
	}
	return Result{}, false
}

// Failed returns the results that did not succeed.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-plugin error, or returns nil when all plugins
// succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
		if res.CommandErr != nil && !res.CommandSkipped {
			errs = append(errs, fmt.Errorf("generate: plugin %q command: %w", res.Plugin, res.CommandErr))
		}
	}
	return errors.Join(errs...)
}
