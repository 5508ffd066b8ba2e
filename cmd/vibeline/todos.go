package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/layout"
	"github.com/MrWong99/vibeline/internal/todo"
)

func newTodosCommand(c *cli) *cobra.Command {
	var opts todo.Options
	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Turn action item artifacts into markdown TODO lists",
		Long: `Todos reads <voice_memos_dir>/action_items/*.txt, extracts the list
items and writes <voice_memos_dir>/TODOs/<name>.md as a checklist. Existing
TODO files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := todo.Process(layout.New(c.cfg.Paths.VoiceMemosDir), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "todos: %d written, %d kept, %d without items\n", sum.Written, sum.Skipped, sum.Empty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "rewrite existing TODO files")
	return cmd
}
