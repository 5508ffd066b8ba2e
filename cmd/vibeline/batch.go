package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/app"
	"github.com/MrWong99/vibeline/internal/health"
	"github.com/MrWong99/vibeline/internal/observe"
)

func newBatchCommand(c *cli) *cobra.Command {
	var (
		opts        app.ProcessOptions
		metricsAddr string
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Process every transcript in a directory concurrently",
		Long: `Batch runs extract for every *.txt transcript directly inside dir
(default: <voice_memos_dir>/transcripts), skipping _cleaned and _summary
files. A failing transcript is reported without stopping the others; the
command fails if any transcript failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if workers > 0 {
				c.cfg.Batch.Workers = workers
			}
			dir := c.defaultTranscriptDir()
			if len(args) == 1 {
				dir = args[0]
			}
			a, err := c.newApp()
			if err != nil {
				return err
			}
			// Fail fast on a broken plugins directory instead of once per transcript.
			if _, err := a.LoadPlugins(); err != nil {
				return err
			}

			if metricsAddr == "" {
				metricsAddr = c.cfg.Telemetry.MetricsAddr
			}
			if metricsAddr != "" {
				shutdown, err := startMetrics(ctx, metricsAddr, newHealth(c, a))
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(shutdownCtx); err != nil {
						slog.Warn("telemetry shutdown error", "err", err)
					}
				}()
			}

			sum, err := a.ProcessDir(ctx, dir, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "processed %d transcript(s) in %s: %d with failed plugins, %d failed\n",
				sum.Processed, sum.Duration.Round(time.Millisecond), sum.Partial, len(sum.Failed))
			failed := make([]string, 0, len(sum.Failed))
			for path := range sum.Failed {
				failed = append(failed, path)
			}
			slices.Sort(failed)
			for _, path := range failed {
				fmt.Fprintf(c.out, "  FAILED %s: %v\n", path, sum.Failed[path])
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d transcript(s) failed", len(failed), sum.Processed+len(failed))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Force, "force", false, "regenerate artifacts that already exist")
	f.BoolVar(&opts.NoClean, "no-clean", false, "skip vocabulary cleaning")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address (overrides telemetry.metrics_addr)")
	f.IntVar(&workers, "workers", 0, "transcripts processed at once (overrides batch.workers)")
	return cmd
}

// newHealth reports readiness of the inputs re-read for every transcript and
// the progress of a's batch.
func newHealth(c *cli, a *app.App) *health.Handler {
	return health.New([]health.Check{
		{Name: "plugins", Fn: func(context.Context) error {
			_, err := a.LoadPlugins()
			return err
		}},
		{Name: "vocabulary", Fn: func(context.Context) error {
			_, _, err := app.NewCorrector(c.cfg)
			return err
		}},
	}, health.WithProgress(a.Progress))
}

// startMetrics installs the Prometheus-backed OTel providers and serves them,
// together with h, on addr until ctx is cancelled.
func startMetrics(ctx context.Context, addr string, h *health.Handler) (func(context.Context) error, error) {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "vibeline"})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if err := observe.ServeMetrics(ctx, addr, h.Register); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("serve metrics on %s: %w", addr, err)
	}
	return shutdown, nil
}
