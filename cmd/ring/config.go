package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration objects",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		configs, err := api.ListConfigs(cmd.Context(), namespace)
		if err != nil {
			return err
		}

		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "ID\tNAMESPACE\tNAME\tCREATED\tUPDATED")
		for _, c := range configs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.ID, c.Namespace, c.Name, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
		}
		return tw.Flush()
	},
}

var configInspectCmd = &cobra.Command{
	Use:   "inspect ID",
	Short: "Show one configuration object as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		c, err := api.GetConfig(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete ID [ID...]",
	Short: "Delete configuration objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := api.DeleteConfig(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Printf("✓ Config %s deleted\n", id)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configInspectCmd)
	configCmd.AddCommand(configDeleteCmd)

	configListCmd.Flags().StringP("namespace", "n", "", "Filter by namespace")
}
