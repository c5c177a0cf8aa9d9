package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		u, err := api.CreateUser(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Printf("✓ User %q created (%s)\n", u.Username, u.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		users, err := api.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "ID\tUSERNAME\tSTATUS\tCREATED\tLAST LOGIN")
		for _, u := range users {
			lastLogin := "-"
			if u.LastLoginAt != nil {
				lastLogin = formatTime(*u.LastLoginAt)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				u.ID, u.Username, u.Status, formatTime(u.CreatedAt), lastLogin)
		}
		return tw.Flush()
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a user's name or password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" && password == "" {
			return fmt.Errorf("nothing to update, pass --username or --password")
		}

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		u, err := api.UpdateUser(cmd.Context(), args[0], username, password)
		if err != nil {
			return err
		}
		fmt.Printf("✓ User %q updated\n", u.Username)
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete ID [ID...]",
	Short: "Delete users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := api.DeleteUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Printf("✓ User %s deleted\n", id)
		}
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userUpdateCmd)
	userCmd.AddCommand(userDeleteCmd)

	userCreateCmd.Flags().StringP("username", "u", "", "Username (required)")
	userCreateCmd.Flags().StringP("password", "p", "", "Password (required)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userUpdateCmd.Flags().StringP("username", "u", "", "New username")
	userUpdateCmd.Flags().StringP("password", "p", "", "New password")
}
