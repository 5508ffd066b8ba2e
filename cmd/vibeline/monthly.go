package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/app"
	"github.com/MrWong99/vibeline/internal/config"
	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/monthly"
)

func newMonthlyCommand(c *cli) *cobra.Command {
	var opts monthly.Options
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Summarise each archived month from its voice memo summaries",
		Long: `Monthly reads <voice_memos_dir>/archive/<YYYY-MM>/summaries/*.txt,
orders them by recording time and asks the model configured as
generation.summary_model (OLLAMA_SUMMARY_MODEL, falling back to the default
model) for a three-paragraph summary, written to
archive/<YYYY-MM>/MONTHLY_SUMMARY.md. Existing summaries are kept unless
--force is given. A month that fails does not stop the others; the command
then fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := app.NewBackend(c.cfg, c.registry)
			if err != nil {
				return err
			}
			gen := c.cfg.Generation
			s := monthly.New(backend, layout.New(c.cfg.Paths.VoiceMemosDir),
				monthly.WithModel(gen.SummaryModel),
				monthly.WithTemperature(gen.TemperatureOr(config.DefaultTemperature)),
				monthly.WithMaxTokens(gen.MaxTokens),
				monthly.WithTimeout(gen.Timeout),
			)

			results, err := s.Run(cmd.Context(), opts)
			failed := 0
			for _, r := range results {
				detail := r.Path
				switch r.Status {
				case monthly.StatusFailed:
					failed++
					detail = r.Err.Error()
				case monthly.StatusEmpty:
					detail = "no summaries"
				case monthly.StatusDryRun:
					detail = fmt.Sprintf("would summarise %d memo(s)", r.Summaries)
				}
				fmt.Fprintf(c.out, "%-8s %-14s %s\n", r.Month, r.Status, detail)
			}
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(c.out, "no months found")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d month(s) failed", failed, len(results))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Month, "month", "m", "", "only process this month (YYYY-MM)")
	f.BoolVar(&opts.Force, "force", false, "regenerate existing monthly summaries")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "report what would be generated without calling the model")
	return cmd
}
