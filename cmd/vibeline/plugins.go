package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/activation"
	"github.com/MrWong99/vibeline/internal/plugin"
)

func newPluginsCommand(c *cli) *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins and, optionally, which a text would activate",
		Long: `Plugins loads the plugins directory, reports configuration errors and
prints one line per plugin. With --check, only the plugins the given text
activates are listed, with the keywords that matched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := plugin.Load(c.cfg.Paths.PluginsDir)
			if err != nil {
				return err
			}
			if reg.Len() == 0 {
				return fmt.Errorf("no plugins found in %q", c.cfg.Paths.PluginsDir)
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if check != "" {
				active := activation.Activate(check, reg)
				fmt.Fprintln(tw, "PLUGIN\tMATCHED")
				for _, name := range active.Sorted() {
					def, _ := reg.Get(name)
					fmt.Fprintf(tw, "%s\t%s\n", name, orDash(strings.Join(activation.MatchedKeywords(check, def), ", ")))
				}
				return nil
			}

			fmt.Fprintln(tw, "PLUGIN\tRUN\tMATCH\tKEYWORDS\tMODEL\tOUTPUT\tDESCRIPTION")
			for _, def := range reg.All() {
				output := def.OutputExtension
				switch {
				case def.HasPrompt() && def.HasCommand():
					output += " + command"
				case !def.HasPrompt():
					output = "command only"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					def.Name, def.Run, def.Match,
					orDash(strings.Join(def.Keywords, ", ")),
					orDash(def.Model), output, def.Description,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "show which plugins this text activates")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
