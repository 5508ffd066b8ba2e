// Command vibeline turns voice memo transcripts into plugin-driven artifacts:
// blog drafts, summaries, action items and whatever else the plugins
// directory describes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI()
	if err := newRootCommand(c).ExecuteContext(ctx); err != nil {
		if c.cfg == nil {
			fmt.Fprintf(os.Stderr, "vibeline: %v\n", err)
		} else {
			slog.Error("vibeline failed", "err", err)
		}
		return 1
	}
	return 0
}
