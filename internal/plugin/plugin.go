// Package plugin defines the declarative rules that decide which artifacts
// are derived from a transcript, and loads them from a directory of YAML
// files into a deterministic [Registry].
//
// A plugin bundles an activation condition (run mode, match mode, keywords,
// ignore_if), an optional prompt template and an optional post-generation
// shell command. Legacy fields are translated once at load time; every
// [Definition] handed to the rest of the program is in canonical form.
package plugin

import (
	"fmt"
	"strings"
)

// RunMode decides whether a plugin's activation depends on the transcript.
type RunMode string

const (
	// RunAlways plugins fire for every transcript unless suppressed by ignore_if.
	RunAlways RunMode = "always"

	// RunMatching plugins fire only when their keyword test passes.
	RunMatching RunMode = "matching"
)

// MatchMode decides how multiple keywords combine for [RunMatching] plugins.
type MatchMode string

const (
	// MatchAll requires every keyword to occur.
	MatchAll MatchMode = "all"

	// MatchAny requires at least one keyword to occur.
	MatchAny MatchMode = "any"
)

// DefaultOutputExtension is used when a plugin does not name one.
const DefaultOutputExtension = ".txt"

// Definition is a loaded, validated plugin. It is immutable by convention:
// callers receive copies and must not modify the Keywords slice.
type Definition struct {
	// Name uniquely identifies the plugin within a registry and names its
	// output directory.
	Name string

	// Description is human-readable text with no behavioural effect.
	Description string

	Run   RunMode
	Match MatchMode

	// Keywords are whole-word, case-insensitive phrases. Never empty for a
	// [RunMatching] plugin.
	Keywords []string

	// IgnoreIf, when non-empty and present in the transcript as a whole word,
	// suppresses the plugin.
	IgnoreIf string

	// Prompt is the template rendered with {transcript} and {summary}.
	// A blank prompt means the plugin only runs its command.
	Prompt string

	// Model overrides the globally configured generation model.
	Model string

	// OutputExtension always starts with a dot.
	OutputExtension string

	// Command is the post-generation shell command template.
	Command string

	// Source is the file the definition was loaded from, if any.
	Source string
}

// HasPrompt reports whether the plugin has a generation step.
func (d Definition) HasPrompt() bool {
	return strings.TrimSpace(d.Prompt) != ""
}

// HasCommand reports whether the plugin has a post-generation command.
func (d Definition) HasCommand() bool {
	return strings.TrimSpace(d.Command) != ""
}

// ModelOr returns the plugin's model override, or def when none is set.
func (d Definition) ModelOr(def string) string {
	if m := strings.TrimSpace(d.Model); m != "" {
		return m
	}
	return def
}

// ConfigError reports an invalid or incomplete plugin definition. It is fatal
// to loading: no registry is returned alongside it.
type ConfigError struct {
	// File is the definition source, empty for definitions built in code.
	File string

	// Field names the offending field, empty for file-level problems.
	Field string

	Msg string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("plugin: ")
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	b.WriteString(e.Msg)
	return b.String()
}

// ParseRunMode converts a case-insensitive, trimmed string to a [RunMode].
func ParseRunMode(s string) (RunMode, error) {
	switch RunMode(strings.ToLower(strings.TrimSpace(s))) {
	case RunAlways:
		return RunAlways, nil
	case RunMatching:
		return RunMatching, nil
	default:
		return "", fmt.Errorf("invalid run mode %q, must be %q or %q", s, RunAlways, RunMatching)
	}
}

// ParseMatchMode converts a case-insensitive, trimmed string to a
// [MatchMode]. The legacy values "and" and "or" are accepted as aliases for
// "all" and "any".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "and":
		return MatchAll, nil
	case "any", "or":
		return MatchAny, nil
	default:
		return "", fmt.Errorf("invalid match mode %q, must be %q or %q", s, MatchAny, MatchAll)
	}
}

// DeriveKeywords splits a plugin name on underscores into lower-case words,
// dropping empty parts: "blog_post" becomes ["blog", "post"].
func DeriveKeywords(name string) []string {
	var out []string
	for _, part := range strings.Split(name, "_") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitKeywords splits a comma-separated keyword string, trimming each entry
// and dropping empty ones.
func SplitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeExtension adds the leading dot if missing and applies the default.
func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultOutputExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
