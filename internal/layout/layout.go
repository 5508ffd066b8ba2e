// Package layout knows where transcripts, audio and generated artifacts live
// inside the voice memos directory.
//
// A typical tree:
//
//	VoiceMemos/
//	  20240115_093000.m4a
//	  transcripts/20240115_093000.txt
//	  transcripts/20240115_093000_cleaned.txt
//	  summaries/20240115_093000.txt
//	  blog_posts/20240115_093000.txt
//	  TODOs/20240115_093000.md
//	  archive/2024-01/summaries/20240115_093000.txt
//	  archive/2024-01/MONTHLY_SUMMARY.md
//
// Each plugin writes into a directory named after the plural of its name.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinzhu/inflection"
)

const (
	// CleanedSuffix marks a vocabulary-corrected copy of a transcript.
	CleanedSuffix = "_cleaned"

	// SummarySuffix marks a summary stored next to its transcript.
	SummarySuffix = "_summary"

	// SummaryPlugin is the plugin whose artifact doubles as the {summary}
	// prompt input for other plugins.
	SummaryPlugin = "summary"

	// ActionItemsDir holds the action_items plugin artifacts.
	ActionItemsDir = "action_items"

	// TodosDir holds the markdown TODO lists derived from action items.
	TodosDir = "TODOs"

	// TranscriptsDir holds the transcripts produced by speech-to-text.
	TranscriptsDir = "transcripts"

	// ArchiveDir holds one YYYY-MM directory per archived month.
	ArchiveDir = "archive"

	// MonthlySummaryFile is written into each archived month.
	MonthlySummaryFile = "MONTHLY_SUMMARY.md"
)

// Layout resolves paths under a voice memos root directory.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TranscriptDir returns the default transcripts directory.
func (l Layout) TranscriptDir() string {
	return filepath.Join(l.Root, TranscriptsDir)
}

// PluginDir returns the output directory for a plugin: the plural of its
// name under the root, e.g. "blog_post" → "VoiceMemos/blog_posts".
func (l Layout) PluginDir(plugin string) string {
	return filepath.Join(l.Root, inflection.Plural(plugin))
}

// ArtifactPath returns where plugin writes its artifact for transcriptPath.
func (l Layout) ArtifactPath(plugin, transcriptPath, ext string) string {
	return filepath.Join(l.PluginDir(plugin), Stem(transcriptPath)+ext)
}

// JSONPath returns the structured-output sibling of the artifact for
// transcriptPath.
func (l Layout) JSONPath(plugin, transcriptPath string) string {
	return l.ArtifactPath(plugin, transcriptPath, ".json")
}

// EnsurePluginDirs creates the output directory of every named plugin.
func (l Layout) EnsurePluginDirs(plugins []string) error {
	for _, name := range plugins {
		if err := os.MkdirAll(l.PluginDir(name), 0o755); err != nil {
			return fmt.Errorf("layout: create output dir for %q: %w", name, err)
		}
	}
	return nil
}

// CleanedPath returns the path of the cleaned copy of transcriptPath, beside
// the original.
func CleanedPath(transcriptPath string) string {
	return filepath.Join(filepath.Dir(transcriptPath), Stem(transcriptPath)+CleanedSuffix+".txt")
}

// IsDerived reports whether path is a cleaned copy or a sidecar summary
// rather than an original transcript.
func IsDerived(path string) bool {
	stem := Stem(path)
	return strings.HasSuffix(stem, CleanedSuffix) || strings.HasSuffix(stem, SummarySuffix)
}

// ReadSummary returns the summary text for transcriptPath. It prefers a
// "<stem>_summary.txt" file beside the transcript and falls back to the
// summary plugin's artifact. A missing summary yields "".
func (l Layout) ReadSummary(transcriptPath string) (string, error) {
	candidates := []string{
		filepath.Join(filepath.Dir(transcriptPath), Stem(transcriptPath)+SummarySuffix+".txt"),
		l.ArtifactPath(SummaryPlugin, transcriptPath, ".txt"),
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("layout: read summary %q: %w", p, err)
		}
		return string(data), nil
	}
	return "", nil
}

// ArchiveDir returns the root of the monthly archive.
func (l Layout) ArchiveDir() string {
	return filepath.Join(l.Root, ArchiveDir)
}

// MonthDir returns the archive directory of month (YYYY-MM).
func (l Layout) MonthDir(month string) string {
	return filepath.Join(l.ArchiveDir(), month)
}

// MonthSummariesDir returns where the summaries of an archived month live.
// An archived month keeps the layout of the voice memos root.
func (l Layout) MonthSummariesDir(month string) string {
	return New(l.MonthDir(month)).PluginDir(SummaryPlugin)
}

// MonthlySummaryPath returns the monthly summary file of month.
func (l Layout) MonthlySummaryPath(month string) string {
	return filepath.Join(l.MonthDir(month), MonthlySummaryFile)
}

// ArchiveMonths lists the month directories (named like 2024-01) in the
// archive, oldest first. A missing archive yields an error wrapping
// [fs.ErrNotExist].
func (l Layout) ArchiveMonths() ([]string, error) {
	entries, err := os.ReadDir(l.ArchiveDir())
	if err != nil {
		return nil, fmt.Errorf("layout: list archive: %w", err)
	}
	var months []string
	for _, e := range entries {
		if e.IsDir() && IsMonthName(e.Name()) {
			months = append(months, e.Name())
		}
	}
	return months, nil
}

// IsMonthName reports whether name has the YYYY-MM shape of an archived
// month directory.
func IsMonthName(name string) bool {
	return len(name) == 7 && name[4] == '-'
}

// Transcripts lists the original transcripts (*.txt, excluding derived
// files) directly inside dir, sorted by name.
func Transcripts(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("layout: list transcripts: %w", err)
	}
	out := matches[:0]
	for _, m := range matches {
		if !IsDerived(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
