package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kemeter/ring/internal/auth"
	"github.com/kemeter/ring/internal/config"
	"github.com/kemeter/ring/internal/store"
	"github.com/kemeter/ring/internal/types"
)

// Credentials seeded for the first user. Rotate them after the first login.
const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "changeme"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration and seed the admin user",
	Long: `Init writes config.toml with generated defaults into the config
directory and creates the initial admin user in the database. Re-running it
keeps an existing config file and an existing user set untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.Dir()

		path := config.FilePath(dir)
		_, statErr := os.Stat(path)
		fresh := errors.Is(statErr, os.ErrNotExist)
		if statErr != nil && !fresh {
			return statErr
		}
		if fresh {
			if err := config.Default().Save(dir); err != nil {
				return err
			}
		}
		// Reload so environment overrides apply either way. Keeping an
		// existing file preserves its salt: regenerating it would break
		// every stored password hash.
		cfg, err := config.LoadDir(dir)
		if err != nil {
			return err
		}
		if fresh {
			fmt.Printf("✓ Wrote %s\n", path)
		} else {
			fmt.Printf("Config %s already exists, keeping it\n", path)
		}

		db, err := store.Open(cfg.DatabasePath, cfg.DBPoolSize)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		hash, err := auth.HashPassword(defaultAdminPassword, cfg.User.Salt)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		err = db.CreateFirstUser(&types.User{
			ID:        uuid.NewString(),
			Username:  defaultAdminUser,
			Password:  hash,
			Status:    types.UserActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		switch {
		case errors.Is(err, store.ErrUsersExist):
			fmt.Println("Users already exist, skipping admin seed")
		case err != nil:
			return fmt.Errorf("seed admin user: %w", err)
		default:
			fmt.Printf("✓ Created user %q with password %q\n", defaultAdminUser, defaultAdminPassword)
		}
		return nil
	},
}
