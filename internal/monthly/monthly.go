// Package monthly condenses the summaries of an archived month into a single
// MONTHLY_SUMMARY.md.
//
// Archived months live under <voice_memos_dir>/archive/<YYYY-MM>/ and keep
// the per-transcript layout, so their summaries sit in a summaries/
// directory. The [Summarizer] orders them by the recording time encoded in
// their file names, sends them to the backend in one prompt and writes the
// reply. An existing monthly summary is kept unless forced.
package monthly

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/observe"
	"github.com/MrWong99/vibeline/pkg/provider/llm"
)

// Name labels monthly summary generations in metrics.
const Name = "monthly_summary"

// DefaultPrompt asks for three plain prose paragraphs. {month_name} and
// {summaries} are substituted.
const DefaultPrompt = `You are analyzing a collection of voice memo summaries from {month_name}.

Below are individual summaries from voice memos recorded throughout the month, listed
chronologically with their timestamps:

{summaries}

Please create a concise monthly summary in exactly 3 paragraphs:
- First paragraph: The main themes, topics, and recurring concerns of the month
- Second paragraph: Notable events, decisions, or milestones
- Third paragraph: Overall mood and sense of what the month was about

Write in plain prose without markdown, headers, or bullet points. Just three flowing
paragraphs that capture the essence of the month.

Monthly Summary:`

var (
	// ErrNoArchive is returned when the voice memos root has no archive.
	ErrNoArchive = errors.New("monthly: archive directory not found")

	// ErrInvalidMonth is returned for a month not in YYYY-MM form.
	ErrInvalidMonth = errors.New("monthly: invalid month, use YYYY-MM")

	// ErrMonthNotFound is returned when the requested month is not archived.
	ErrMonthNotFound = errors.New("monthly: month directory not found")
)

const (
	monthLayout   = "2006-01"
	stampLayout   = "20060102_150405"
	displayLayout = "Mon Jan 02, 03:04 PM"
)

// Entry is one summary of an archived month.
type Entry struct {
	// Name is the file name, e.g. 20240115_093000.txt.
	Name string

	// Text is the trimmed summary.
	Text string

	// Time is the recording time parsed from Name; zero when Name carries
	// no timestamp.
	Time time.Time
}

// Header labels the entry in the prompt.
func (e Entry) Header() string {
	if e.Time.IsZero() {
		return "[" + layout.Stem(e.Name) + "]"
	}
	return "[" + e.Time.Format(displayLayout) + "]"
}

// ParseStamp parses the YYYYMMDD_HHMMSS prefix of a file name's stem.
func ParseStamp(name string) (time.Time, bool) {
	stem := layout.Stem(name)
	if len(stem) < len(stampLayout) || stem[8] != '_' {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, stem[:len(stampLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReadSummaries returns the non-empty *.txt summaries in dir, oldest
// recording first. Summaries without a timestamp come first, in name order.
// A missing directory yields no entries; unreadable files are skipped with a
// warning.
func ReadSummaries(ctx context.Context, dir string) ([]Entry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("monthly: list %s: %w", dir, err)
	}
	slices.Sort(files)

	var entries []Entry
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			observe.Logger(ctx).Warn("monthly: skipping unreadable summary", "path", f, "err", err)
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		e := Entry{Name: filepath.Base(f), Text: text}
		e.Time, _ = ParseStamp(e.Name)
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b Entry) int { return a.Time.Compare(b.Time) })
	return entries, nil
}

// FormatEntries lays the entries out for the prompt, separated by rules.
func FormatEntries(entries []Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Header() + "\n" + e.Text
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// MonthName turns 2024-01 into "January 2024". Other input is returned
// unchanged.
func MonthName(month string) string {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// Render substitutes {month_name} and {summaries} in template. Summary text
// is not scanned for placeholders.
func Render(template, month string, entries []Entry) string {
	return strings.NewReplacer(
		"{month_name}", MonthName(month),
		"{summaries}", FormatEntries(entries),
	).Replace(template)
}

// Document is the content written to MONTHLY_SUMMARY.md.
func Document(month, summary string) string {
	return fmt.Sprintf("# Monthly Summary: %s\n\n%s\n", MonthName(month), summary)
}

// Status is the outcome for one month.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusKept      Status = "kept_existing"
	StatusEmpty     Status = "no_summaries"
	StatusDryRun    Status = "dry_run"
	StatusFailed    Status = "failed"
)

// Result describes what happened to one month.
type Result struct {
	Month string

	// Path is the monthly summary file.
	Path string

	// Summaries counts the entries found; zero for kept months.
	Summaries int

	Status Status

	// Err is set when Status is StatusFailed.
	Err error
}

// Options selects what [Summarizer.Run] does.
type Options struct {
	// Month restricts the run to one YYYY-MM month. Empty means every
	// archived month.
	Month string

	// Force regenerates existing monthly summaries.
	Force bool

	// DryRun reports what would be generated without calling the backend.
	DryRun bool
}

// Summarizer writes monthly summaries through a generation backend.
type Summarizer struct {
	backend     llm.Provider
	layout      layout.Layout
	model       string
	prompt      string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	metrics     *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Summarizer)

// WithModel sets the model. Default: llama2.
func WithModel(model string) Option {
	return func(s *Summarizer) {
		if m := strings.TrimSpace(model); m != "" {
			s.model = m
		}
	}
}

// WithPrompt replaces [DefaultPrompt].
func WithPrompt(prompt string) Option {
	return func(s *Summarizer) { s.prompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *Summarizer) { s.temperature = t }
}

// WithMaxTokens caps completion length. Zero leaves it to the backend.
func WithMaxTokens(n int) Option {
	return func(s *Summarizer) { s.maxTokens = n }
}

// WithTimeout bounds each backend call. Expiry fails only that month.
func WithTimeout(d time.Duration) Option {
	return func(s *Summarizer) { s.timeout = d }
}

// WithMetrics sets the metrics sink. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Summarizer) { s.metrics = m }
}

// New returns a Summarizer for the archive under l.
func New(backend llm.Provider, l layout.Layout, opts ...Option) *Summarizer {
	s := &Summarizer{
		backend: backend,
		layout:  l,
		model:   "llama2",
		prompt:  DefaultPrompt,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Months resolves the months a run covers, oldest first.
func (s *Summarizer) Months(month string) ([]string, error) {
	if _, err := os.Stat(s.layout.ArchiveDir()); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoArchive, s.layout.ArchiveDir())
	}
	if month == "" {
		return s.layout.ArchiveMonths()
	}
	if _, err := time.Parse(monthLayout, month); err != nil || !layout.IsMonthName(month) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	info, err := os.Stat(s.layout.MonthDir(month))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMonthNotFound, s.layout.MonthDir(month))
	}
	return []string{month}, nil
}

// Run writes the monthly summary of every selected month. A month that fails
// to generate is reported in its Result and the others still run. The model
// is ensured once, before the first generation; if it is unavailable Run
// stops and returns the results so far with the error.
func (s *Summarizer) Run(ctx context.Context, opts Options) ([]Result, error) {
	months, err := s.Months(opts.Month)
	if err != nil {
		return nil, err
	}
	log := observe.Logger(ctx)
	if len(months) == 0 {
		log.Info("monthly: no months found")
		return nil, nil
	}
	log.Info("monthly: processing archive", "months", len(months), "dry_run", opts.DryRun)

	results := make([]Result, 0, len(months))
	ensured := false
	for _, month := range months {
		res, entries := s.plan(ctx, month, opts)
		if res.Status != "" {
			results = append(results, res)
			continue
		}
		if !ensured {
			if err := s.backend.EnsureModel(ctx, s.model); err != nil {
				return results, fmt.Errorf("monthly: model %s: %w", s.model, err)
			}
			ensured = true
		}
		results = append(results, s.generate(ctx, res, entries))
	}
	return results, nil
}

// plan decides whether month needs a generation. It returns a Result with a
// final Status when it does not.
func (s *Summarizer) plan(ctx context.Context, month string, opts Options) (Result, []Entry) {
	log := observe.Logger(ctx).With("month", month)
	res := Result{Month: month, Path: s.layout.MonthlySummaryPath(month)}

	if _, err := os.Stat(res.Path); err == nil && !opts.Force {
		log.Info("monthly: keeping existing summary", "path", res.Path)
		res.Status = StatusKept
		return res, nil
	}
	entries, err := ReadSummaries(ctx, s.layout.MonthSummariesDir(month))
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res, nil
	}
	res.Summaries = len(entries)
	if len(entries) == 0 {
		log.Info("monthly: no summaries found")
		res.Status = StatusEmpty
		return res, nil
	}
	if opts.DryRun {
		log.Info("monthly: would generate", "summaries", len(entries))
		res.Status = StatusDryRun
		return res, nil
	}
	return res, entries
}

func (s *Summarizer) generate(ctx context.Context, res Result, entries []Entry) Result {
	ctx, span := observe.StartSpan(ctx, "monthly.generate",
		trace.WithAttributes(attribute.String("month", res.Month)))
	defer span.End()
	log := observe.Logger(ctx).With("month", res.Month)

	log.Info("monthly: generating", "summaries", len(entries), "model", s.model)
	text, err := s.complete(ctx, Render(s.prompt, res.Month, entries))
	if err == nil {
		err = os.WriteFile(res.Path, []byte(Document(res.Month, text)), 0o644)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("monthly: generation failed", "err", err)
		res.Status, res.Err = StatusFailed, fmt.Errorf("monthly: %s: %w", res.Month, err)
	} else {
		log.Info("monthly: summary written", "path", res.Path)
		res.Status = StatusGenerated
	}
	s.metrics.RecordGenerationResult(ctx, Name, string(res.Status))
	return res
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := s.backend.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Messages:    []llm.Message{llm.UserMessage(prompt)},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	s.metrics.RecordGeneration(ctx, Name, s.model, time.Since(start))
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	s.metrics.RecordTokens(ctx, s.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Content), nil
}
