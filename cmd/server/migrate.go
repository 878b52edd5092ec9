package main

import (
	"fmt"

	"github.com/quocanhngo/airguard/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DB.Driver != "postgres" {
			return fmt.Errorf("migrations apply to postgres only (DB_DRIVER=%s)", cfg.DB.Driver)
		}
		return migrations.Run(cfg.DB.URL())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DB.Driver != "postgres" {
			return fmt.Errorf("migrations apply to postgres only (DB_DRIVER=%s)", cfg.DB.Driver)
		}
		return migrations.Rollback(cfg.DB.URL())
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
