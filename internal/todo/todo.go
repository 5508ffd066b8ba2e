// Package todo converts action_items artifacts into markdown checklists.
//
// The action_items plugin produces free-form model output. Only top-level
// list items ("-", "*" or "+") are kept; the model's preamble and
// boilerplate lines are dropped.
package todo

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/MrWong99/vibeline/internal/layout"
)

var (
	listMarker  = regexp.MustCompile(`^\s*[-*+]`)
	noDeadline  = regexp.MustCompile(`\s*\(no deadline or priority mentioned\)$`)
	stampedStem = regexp.MustCompile(`^\d{8}_\d{6}$`)
)

// boilerplate prefixes mark model chatter rather than action items.
var boilerplate = []string{"Here are", "Rules were", "No action items"}

// stampLayout matches recorder file names such as 20240115_093000.
const stampLayout = "20060102_150405"

// Extract returns the action items listed in content, in order.
func Extract(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		if hasAnyPrefix(trimmed, boilerplate) || !listMarker.MatchString(line) {
			continue
		}
		start := strings.IndexFunc(line, isASCIILetter)
		if start < 0 {
			continue
		}
		item := strings.TrimSpace(line[start:])
		if item == "" || strings.HasPrefix(item, "#") {
			continue
		}
		items = append(items, noDeadline.ReplaceAllString(item, ""))
	}
	return items
}

// Format renders items as a markdown checklist headed by the recording time
// parsed from stem, or by the stem itself when it is not a timestamp.
func Format(items []string, stem string) string {
	if len(items) == 0 {
		return "# No items found\n"
	}
	var b strings.Builder
	b.WriteString(Header(stem))
	b.WriteString("\n\n")
	for _, item := range items {
		b.WriteString("- [ ] ")
		b.WriteString(sentence(item))
		b.WriteByte('\n')
	}
	return b.String()
}

// Header returns the markdown heading for a recording named stem.
func Header(stem string) string {
	if stampedStem.MatchString(stem) {
		if t, err := time.Parse(stampLayout, stem); err == nil {
			return "# " + t.Format("Mon Jan 02 @ 03:04 PM")
		}
	}
	return "# Action Items from " + stem
}

// Options controls [Process].
type Options struct {
	// Force rewrites existing TODO files.
	Force bool
}

// Summary counts what [Process] did.
type Summary struct {
	Written int
	Skipped int
	Empty   int
}

// Process converts every action items file under the voice memos root into
// a TODO list in the TODOs directory. A missing action items directory is not
// an error.
func Process(l layout.Layout, opts Options) (Summary, error) {
	var sum Summary
	src := filepath.Join(l.Root, layout.ActionItemsDir)
	dst := filepath.Join(l.Root, layout.TodosDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return sum, fmt.Errorf("todo: create %s: %w", dst, err)
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("todo: no action items directory", "dir", src)
		return sum, nil
	}

	files, err := filepath.Glob(filepath.Join(src, "*.txt"))
	if err != nil {
		return sum, fmt.Errorf("todo: list %s: %w", src, err)
	}
	for _, file := range files {
		stem := layout.Stem(file)
		out := filepath.Join(dst, stem+".md")
		if _, err := os.Stat(out); err == nil && !opts.Force {
			slog.Info("todo: keeping existing list", "path", out)
			sum.Skipped++
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return sum, fmt.Errorf("todo: read %s: %w", file, err)
		}
		items := Extract(string(data))
		if len(items) == 0 {
			slog.Info("todo: no action items", "file", filepath.Base(file))
			sum.Empty++
			continue
		}
		if err := os.WriteFile(out, []byte(Format(items, stem)), 0o644); err != nil {
			return sum, fmt.Errorf("todo: write %s: %w", out, err)
		}
		slog.Info("todo: list written", "path", out, "items", len(items))
		sum.Written++
	}
	return sum, nil
}

func sentence(item string) string {
	if item == "" {
		return item
	}
	r := []rune(item)
	r[0] = unicode.ToUpper(r[0])
	item = string(r)
	if !strings.HasSuffix(item, ".") && !strings.HasSuffix(item, "!") && !strings.HasSuffix(item, "?") {
		item += "."
	}
	return item
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
