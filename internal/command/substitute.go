// Package command renders and runs the post-generation shell command a plugin
// may declare.
//
// Rendering is an explicit, ordered list of substitution passes. The template
// starts as one raw segment; each pass scans only raw segments and splits them
// around the tokens it resolves, so text produced by an earlier pass is never
// rescanned by a later one. Every substituted segment carries two values: the
// real one used to run the command and a display one used for logging, which
// is how sensitive environment values stay out of the logs.
package command

import (
	"regexp"
	"strings"
)

// Mask replaces sensitive values in the display form of a command.
const Mask = "****"

// Resolution is the outcome of resolving one token.
type Resolution struct {
	// Value is substituted into the command that is executed.
	Value string

	// Display is substituted into the loggable form of the command.
	Display string

	// OK is false when the token cannot be resolved; it is then left
	// verbatim in both forms.
	OK bool
}

// Pass is one named substitution step.
type Pass struct {
	// Name identifies the pass in errors and logs.
	Name string

	// Pattern finds the tokens this pass resolves.
	Pattern *regexp.Regexp

	// Resolve maps a token's submatches (index 0 is the whole token) to its
	// replacement.
	Resolve func(match []string) Resolution
}

// Rendered is a fully substituted command.
type Rendered struct {
	// Command is the string handed to the shell.
	Command string

	// Display is Command with sensitive values masked. Only this form may be
	// logged.
	Display string
}

type segment struct {
	value   string
	display string
	raw     bool
}

// Render applies passes to template in order.
func Render(template string, passes ...Pass) Rendered {
	segs := []segment{{value: template, display: template, raw: true}}
	for _, p := range passes {
		segs = apply(segs, p)
	}

	var cmd, disp strings.Builder
	for _, s := range segs {
		cmd.WriteString(s.value)
		disp.WriteString(s.display)
	}
	return Rendered{Command: cmd.String(), Display: disp.String()}
}

func apply(segs []segment, p Pass) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if !s.raw {
			out = append(out, s)
			continue
		}
		text := s.value
		last := 0
		for _, loc := range p.Pattern.FindAllStringSubmatchIndex(text, -1) {
			match := make([]string, len(loc)/2)
			for i := range match {
				if loc[2*i] >= 0 {
					match[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			res := p.Resolve(match)
			if !res.OK {
				continue
			}
			if loc[0] > last {
				out = append(out, rawSegment(text[last:loc[0]]))
			}
			out = append(out, segment{value: res.Value, display: res.Display})
			last = loc[1]
		}
		if last < len(text) {
			out = append(out, rawSegment(text[last:]))
		}
	}
	return out
}

func rawSegment(s string) segment {
	return segment{value: s, display: s, raw: true}
}

var (
	audioToken = regexp.MustCompile(`\bAUDIO_FILE\b`)
	fileToken  = regexp.MustCompile(`\bFILE\b`)
	envToken   = regexp.MustCompile(`\$(?:\{([A-Z_][A-Z0-9_]*)\}|([A-Z_][A-Z0-9_]*))`)
)

// NeedsAudio reports whether template references the AUDIO_FILE placeholder.
func NeedsAudio(template string) bool {
	return audioToken.MatchString(template)
}

// AudioPass substitutes AUDIO_FILE with path.
func AudioPass(path string) Pass {
	return Pass{
		Name:    "audio_file",
		Pattern: audioToken,
		Resolve: func([]string) Resolution {
			return Resolution{Value: path, Display: path, OK: true}
		},
	}
}

// FilePass substitutes FILE with the artifact path.
func FilePass(path string) Pass {
	return Pass{
		Name:    "file",
		Pattern: fileToken,
		Resolve: func([]string) Resolution {
			return Resolution{Value: path, Display: path, OK: true}
		},
	}
}

// EnvPass substitutes $NAME and ${NAME} tokens using lookup. Unresolved names
// are left verbatim; values of names for which sensitive reports true are
// masked in the display form.
func EnvPass(lookup func(string) (string, bool), sensitive func(string) bool) Pass {
	return Pass{
		Name:    "env",
		Pattern: envToken,
		Resolve: func(m []string) Resolution {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			v, ok := lookup(name)
			if !ok {
				return Resolution{}
			}
			disp := v
			if sensitive(name) {
				disp = Mask
			}
			return Resolution{Value: v, Display: disp, OK: true}
		},
	}
}

// sensitiveMarkers are name fragments that mark an environment variable as a
// credential.
var sensitiveMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD", "PASSWD", "CREDENTIAL", "NSEC", "PRIVATE"}

// SensitiveFunc returns a predicate matching variable names that contain a
// credential marker or equal one of extra (case-insensitive).
func SensitiveFunc(extra []string) func(string) bool {
	named := make(map[string]struct{}, len(extra))
	for _, e := range extra {
		named[strings.ToUpper(strings.TrimSpace(e))] = struct{}{}
	}
	return func(name string) bool {
		upper := strings.ToUpper(name)
		if _, ok := named[upper]; ok {
			return true
		}
		for _, m := range sensitiveMarkers {
			if strings.Contains(upper, m) {
				return true
			}
		}
		return false
	}
}
