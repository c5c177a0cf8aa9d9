package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kemeter/ring/internal/types"
)

var namespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Manage namespaces",
}

var namespacePruneCmd = &cobra.Command{
	Use:   "prune NAME",
	Short: "Delete every deployment and config in a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace := args[0]

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		deployments, err := api.ListDeployments(cmd.Context(), namespace, "")
		if err != nil {
			return err
		}
		pruned := 0
		for _, d := range deployments {
			if d.Status == types.StatusDeleted {
				continue
			}
			if err := api.DeleteDeployment(cmd.Context(), d.ID); err != nil {
				return fmt.Errorf("delete deployment %s: %w", d.ID, err)
			}
			pruned++
		}

		configs, err := api.ListConfigs(cmd.Context(), namespace)
		if err != nil {
			return err
		}
		for _, c := range configs {
			if err := api.DeleteConfig(cmd.Context(), c.ID); err != nil {
				return fmt.Errorf("delete config %s: %w", c.ID, err)
			}
		}

		fmt.Printf("✓ Pruned namespace %q: %d deployment(s), %d config(s)\n",
			namespace, pruned, len(configs))
		return nil
	},
}

func init() {
	namespaceCmd.AddCommand(namespacePruneCmd)
}
