package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

var deploymentCmd = &cobra.Command{
	Use:   "deployment",
	Short: "Manage deployments",
}

var deploymentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments",
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		status, _ := cmd.Flags().GetString("status")

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		deployments, err := api.ListDeployments(cmd.Context(), namespace, status)
		if err != nil {
			return err
		}

		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "ID\tNAMESPACE\tNAME\tKIND\tIMAGE\tREPLICAS\tSTATUS\tCREATED")
		for _, d := range deployments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
				d.ID, d.Namespace, d.Name, d.Kind, d.Image,
				len(d.Instances), d.Replicas, d.Status, formatTime(d.CreatedAt))
		}
		return tw.Flush()
	},
}

var deploymentInspectCmd = &cobra.Command{
	Use:   "inspect ID",
	Short: "Show one deployment as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		d, err := api.GetDeployment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var deploymentDeleteCmd = &cobra.Command{
	Use:   "delete ID [ID...]",
	Short: "Mark deployments for deletion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := api.DeleteDeployment(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Printf("✓ Deployment %s marked for deletion\n", id)
		}
		return nil
	},
}

var deploymentLogsCmd = &cobra.Command{
	Use:   "logs ID",
	Short: "Print logs from every instance of a deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		tailArg := ""
		if tail > 0 {
			tailArg = strconv.Itoa(tail)
		}
		logs, err := api.DeploymentLogs(cmd.Context(), args[0], tailArg)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("No instances found")
			return nil
		}

		instances := make([]string, 0, len(logs))
		for id := range logs {
			instances = append(instances, id)
		}
		slices.Sort(instances)
		for _, id := range instances {
			fmt.Printf("==> instance %s <==\n", shortID(id))
			for _, line := range logs[id] {
				fmt.Println(line)
			}
		}
		return nil
	},
}

var deploymentEventsCmd = &cobra.Command{
	Use:   "events ID",
	Short: "Show the event log of a deployment, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		limit, _ := cmd.Flags().GetInt("limit")

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		evs, err := api.DeploymentEvents(cmd.Context(), args[0], level, limit)
		if err != nil {
			return err
		}

		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "TIMESTAMP\tLEVEL\tCOMPONENT\tREASON\tMESSAGE")
		for _, ev := range evs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				formatTime(ev.Timestamp), ev.Level, ev.Component, ev.Reason, ev.Message)
		}
		return tw.Flush()
	},
}

func init() {
	deploymentCmd.AddCommand(deploymentListCmd)
	deploymentCmd.AddCommand(deploymentInspectCmd)
	deploymentCmd.AddCommand(deploymentDeleteCmd)
	deploymentCmd.AddCommand(deploymentLogsCmd)
	deploymentCmd.AddCommand(deploymentEventsCmd)

	deploymentListCmd.Flags().StringP("namespace", "n", "", "Filter by namespace")
	deploymentListCmd.Flags().StringP("status", "s", "", "Filter by status")
	deploymentLogsCmd.Flags().Int("tail", 0, "Number of log lines per instance (0 = all)")
	deploymentEventsCmd.Flags().String("level", "", "Filter by level (info, warning, error)")
	deploymentEventsCmd.Flags().Int("limit", 0, "Maximum number of events (default 100)")
}
