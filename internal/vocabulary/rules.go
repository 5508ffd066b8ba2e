package vocabulary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Rule maps a lower-cased misrecognised word or phrase to its correction.
type Rule struct {
	Incorrect string
	Correct   string
}

// Rules is an ordered rule table. Keys keep the position of their first
// definition; a later definition replaces the value in place. The zero value
// is an empty table.
type Rules struct {
	order []string
	m     map[string]string
}

// Len returns the number of rules.
func (r Rules) Len() int { return len(r.order) }

// Lookup returns the correction for word, compared lower-cased.
func (r Rules) Lookup(word string) (string, bool) {
	v, ok := r.m[strings.ToLower(word)]
	return v, ok
}

// All returns the rules in definition order.
func (r Rules) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, Rule{Incorrect: k, Correct: r.m[k]})
	}
	return out
}

// Set adds or overrides a rule. incorrect is trimmed and lower-cased.
func (r *Rules) Set(incorrect, correct string) {
	key := strings.ToLower(strings.TrimSpace(incorrect))
	if r.m == nil {
		r.m = make(map[string]string)
	}
	if _, exists := r.m[key]; !exists {
		r.order = append(r.order, key)
	}
	r.m[key] = strings.TrimSpace(correct)
}

// Merge combines rule sets in order; later sets override earlier ones.
func Merge(sets ...Rules) Rules {
	var out Rules
	for _, s := range sets {
		for _, k := range s.order {
			out.Set(k, s.m[k])
		}
	}
	return out
}

// Parse reads rules of the form "incorrect -> correct". Blank lines and lines
// starting with '#' are ignored, as are malformed lines, which are logged.
func Parse(r io.Reader) (Rules, error) {
	var rules Rules
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "->")
		if len(parts) != 2 {
			slog.Warn("vocabulary: skipping malformed rule", "line", lineNo, "text", line)
			continue
		}
		incorrect, correct := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if incorrect == "" || correct == "" {
			slog.Warn("vocabulary: skipping rule with empty side", "line", lineNo, "text", line)
			continue
		}
		rules.Set(incorrect, correct)
	}
	if err := sc.Err(); err != nil {
		return Rules{}, fmt.Errorf("vocabulary: read rules: %w", err)
	}
	return rules, nil
}

// LoadFile parses the vocabulary file at path. A missing file yields an empty
// table and a warning.
func LoadFile(path string) (Rules, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("vocabulary: file not found, no corrections from it", "path", path)
		return Rules{}, nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("vocabulary: open %q: %w", path, err)
	}
	defer f.Close()

	rules, err := Parse(f)
	if err != nil {
		return Rules{}, fmt.Errorf("vocabulary: %s: %w", path, err)
	}
	slog.Debug("vocabulary: loaded rules", "path", path, "count", rules.Len())
	return rules, nil
}

// LoadFiles loads and merges the given files in order, so later files
// override earlier ones. Empty paths are skipped.
func LoadFiles(paths ...string) (Rules, error) {
	sets := make([]Rules, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		r, err := LoadFile(p)
		if err != nil {
			return Rules{}, err
		}
		sets = append(sets, r)
	}
	return Merge(sets...), nil
}
