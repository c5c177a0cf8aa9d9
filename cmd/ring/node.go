package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect the node the server runs on",
}

var nodeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a snapshot of the Docker host",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		info, err := api.NodeGet(cmd.Context())
		if err != nil {
			return err
		}

		tw := newTable(os.Stdout)
		fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
		fmt.Fprintf(tw, "Operating system:\t%s\n", info.OperatingSystem)
		fmt.Fprintf(tw, "OS type:\t%s\n", info.OSType)
		fmt.Fprintf(tw, "Architecture:\t%s\n", info.Architecture)
		fmt.Fprintf(tw, "CPUs:\t%d\n", info.CPUs)
		fmt.Fprintf(tw, "Memory:\t%d\n", info.MemoryBytes)
		fmt.Fprintf(tw, "Server version:\t%s\n", info.ServerVersion)
		fmt.Fprintf(tw, "Containers:\t%d (%d running)\n", info.Containers, info.ContainersRunning)
		fmt.Fprintf(tw, "Images:\t%d\n", info.Images)
		return tw.Flush()
	},
}

func init() {
	nodeCmd.AddCommand(nodeGetCmd)
}
