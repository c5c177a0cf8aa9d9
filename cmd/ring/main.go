package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ring",
	Short: "Ring keeps a Docker host converged on a set of declared deployments",
	Long: `Ring is a small deployment engine for a single Docker host.

The server polls the declared state and reconciles containers toward it;
every other command talks to a running server over its HTTP API using the
current context from the config file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(deploymentCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(namespaceCmd)
	rootCmd.AddCommand(nodeCmd)
}
