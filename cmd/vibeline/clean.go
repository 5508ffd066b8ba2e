package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/app"
)

func newCleanCommand(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "clean [text...]",
		Short: "Apply the vocabulary to text or a file and print the result",
		Long: `Clean runs the vocabulary corrector over the given text, or over the
contents of --file, and prints the corrected text followed by the list of
changed lines. Nothing is written to disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case file != "" && len(args) > 0:
				return errors.New("pass either text or --file, not both")
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				text = string(data)
			case len(args) > 0:
				text = strings.Join(args, " ")
			default:
				return errors.New("nothing to clean: pass text or --file")
			}

			corrector, rules, err := app.NewCorrector(c.cfg)
			if err != nil {
				return err
			}
			cleaned, records := corrector.Clean(text)

			fmt.Fprintln(c.out, cleaned)
			if len(records) == 0 {
				fmt.Fprintf(c.out, "\nno corrections (%d rule(s) loaded)\n", rules.Len())
				return nil
			}
			fmt.Fprintf(c.out, "\n%d correction(s):\n", len(records))
			for _, r := range records {
				fmt.Fprintf(c.out, "  line %d:\n    - %s\n    + %s\n", r.LineNumber, r.Original, r.Corrected)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text to clean from this file")
	return cmd
}
