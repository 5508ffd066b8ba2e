// Package activation decides which plugins fire for a transcript.
//
// Each plugin is evaluated independently: ignore_if suppression first, then
// the run mode, then (for matching plugins) the keyword test combined by the
// plugin's match mode. Evaluation never fails; an empty transcript simply
// activates the always-on plugins.
package activation

import (
	"context"
	"sort"

	"github.com/MrWong99/vibeline/internal/observe"
	"github.com/MrWong99/vibeline/internal/plugin"
	"github.com/MrWong99/vibeline/internal/wordmatch"
)

// Set is the duplicate-free set of active plugin names.
type Set map[string]struct{}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order for presentation.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Activate returns the names of every plugin in reg that should fire for
// transcript.
func Activate(transcript string, reg *plugin.Registry) Set {
	active := make(Set)
	if reg == nil {
		return active
	}
	for _, def := range reg.All() {
		if IsActive(transcript, def) {
			active[def.Name] = struct{}{}
		}
	}
	return active
}

// ActivateContext is [Activate] plus per-plugin activation metrics and debug
// logging.
func ActivateContext(ctx context.Context, transcript string, reg *plugin.Registry, m *observe.Metrics) Set {
	active := Activate(transcript, reg)
	log := observe.Logger(ctx)
	for _, name := range active.Sorted() {
		log.Debug("activation: plugin active", "plugin", name)
		if m != nil {
			m.RecordActivation(ctx, name)
		}
	}
	return active
}

// IsActive evaluates a single plugin against transcript.
func IsActive(transcript string, def plugin.Definition) bool {
	if def.IgnoreIf != "" && wordmatch.Contains(transcript, def.IgnoreIf) {
		return false
	}
	switch def.Run {
	case plugin.RunAlways:
		return true
	case plugin.RunMatching:
		if def.Match == plugin.MatchAny {
			return wordmatch.Any(transcript, def.Keywords)
		}
		return wordmatch.All(transcript, def.Keywords)
	default:
		return false
	}
}

// MatchedKeywords returns the subset of def's keywords found in transcript,
// in keyword order. Used for diagnostics.
func MatchedKeywords(transcript string, def plugin.Definition) []string {
	var out []string
	for _, k := range def.Keywords {
		if wordmatch.Contains(transcript, k) {
			out = append(out, k)
		}
	}
	return out
}
