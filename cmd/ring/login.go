package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kemeter/ring/internal/client"
	"github.com/kemeter/ring/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the current context and save the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		dir := config.Dir()
		cfg, err := config.LoadDir(dir)
		if err != nil {
			return err
		}
		name := currentContextName(cfg)
		host, err := cfg.ContextHost(name)
		if err != nil {
			return err
		}

		token, err := client.New(host, "").Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("login to %s: %w", host, err)
		}

		tokens, err := config.LoadTokens(dir)
		if err != nil {
			return err
		}
		tokens[name] = config.Token{Token: token}
		if err := config.SaveTokens(dir, tokens); err != nil {
			return err
		}
		fmt.Printf("✓ Logged in to context %q (%s)\n", name, host)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username (required)")
	loginCmd.Flags().StringP("password", "p", "", "Password (required)")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}
