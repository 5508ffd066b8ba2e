package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/app"
	"github.com/MrWong99/vibeline/internal/generate"
	"github.com/MrWong99/vibeline/internal/observe"
)

func newExtractCommand(c *cli) *cobra.Command {
	var opts app.ProcessOptions
	cmd := &cobra.Command{
		Use:   "extract <transcript>...",
		Short: "Generate plugin artifacts for one or more transcripts",
		Long: `Extract cleans each transcript with the vocabulary files, activates the
matching plugins and writes one artifact per plugin under the voice memos
directory. Existing artifacts are kept unless --force is given.

A failing plugin does not stop the others; it is reported and the command
still succeeds. A transcript that fails as a whole (for example a missing
file) is reported and the remaining transcripts are still processed; the
command then fails. A missing plugins directory and an unavailable default
model stop the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp()
			if err != nil {
				return err
			}
			var errs []error
			for _, path := range args {
				err := extractOne(cmd.Context(), a, c.out, path, opts)
				if err == nil {
					continue
				}
				fmt.Fprintf(c.out, "%s\n  FAILED %v\n", filepath.Base(path), err)
				errs = append(errs, err)
				if stopsRun(err) {
					break
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "regenerate artifacts that already exist")
	cmd.Flags().BoolVar(&opts.NoClean, "no-clean", false, "skip vocabulary cleaning")
	return cmd
}

func extractOne(ctx context.Context, a *app.App, w io.Writer, path string, opts app.ProcessOptions) error {
	ctx, span := observe.StartSpan(ctx, "cli.extract")
	defer span.End()

	out, err := a.Process(ctx, path, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	printOutcome(w, path, out)
	return nil
}

// stopsRun reports whether err would fail every remaining transcript too.
func stopsRun(err error) bool {
	return errors.Is(err, app.ErrNoPlugins) ||
		errors.Is(err, generate.ErrBackendUnavailable) ||
		errors.Is(err, context.Canceled)
}

func printOutcome(w io.Writer, path string, out *app.Outcome) {
	fmt.Fprintf(w, "%s\n", filepath.Base(path))
	if out.CleanedPath != "" {
		fmt.Fprintf(w, "  cleaned: %d line(s) corrected -> %s\n", len(out.Corrections), out.CleanedPath)
	}
	if len(out.Active) == 0 {
		fmt.Fprintln(w, "  no plugins matched")
		return
	}
	for _, r := range out.Report.Results {
		fmt.Fprintf(w, "  %-20s %-14s %s\n", r.Plugin, r.Status, resultDetail(r))
	}
}

func resultDetail(r generate.Result) string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.CommandSkipped:
		return "command skipped: " + r.CommandErr.Error()
	case r.CommandErr != nil:
		return "command failed: " + r.CommandErr.Error()
	case r.JSONPath != "":
		return r.ArtifactPath + " (+ " + filepath.Base(r.JSONPath) + ")"
	}
	return r.ArtifactPath
}
