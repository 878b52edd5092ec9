package main

import (
	"os"

	"github.com/quocanhngo/airguard/internal/config"
	"github.com/spf13/cobra"
)

// @title           AirGuard API
// @version         1.0
// @description     Air-quality device ingestion with live Telegram status messages.

// @contact.name   API Support
// @contact.email  support@airguard.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "airguard",
	Short: "AirGuard air-quality server",
	Long: `AirGuard ingests CO₂, temperature and humidity readings from fixed-location devices,
evaluates them against configured bands and keeps one live status message per device
up to date in a Telegram chat.

Without a subcommand the server is started.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, deviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
