package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kemeter/ring/internal/config"
)

var contextCmd = &cobra.Command{
	Use:   "context [NAME]",
	Short: "Show or switch the current context",
	Long: `Without arguments, context lists the configured contexts and marks
the current one. With a name, it switches the current context and persists
the choice.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Dir()
		cfg, err := config.LoadDir(dir)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			current := currentContextName(cfg)
			names := make([]string, 0, len(cfg.Contexts))
			for name := range cfg.Contexts {
				names = append(names, name)
			}
			slices.Sort(names)

			tw := newTable(os.Stdout)
			fmt.Fprintln(tw, "CURRENT\tNAME\tHOST")
			for _, name := range names {
				marker := ""
				if name == current {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, name, cfg.Contexts[name].Host)
			}
			return tw.Flush()
		}

		name := args[0]
		if _, ok := cfg.Contexts[name]; !ok {
			return fmt.Errorf("context %q is not configured", name)
		}
		cfg.CurrentContext = name
		if err := cfg.Save(dir); err != nil {
			return err
		}
		fmt.Printf("✓ Switched to context %q\n", name)
		return nil
	},
}
