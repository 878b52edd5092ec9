package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/quocanhngo/airguard/internal/repository"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"devices"},
	Short:   "Inspect registered devices",
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List devices with their live message and alert state",
	RunE:    runDeviceList,
}

func init() {
	deviceCmd.AddCommand(deviceListCmd)
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	db, err := repository.Open(cfg.DB, cfg.App.Env)
	if err != nil {
		return err
	}

	devices, err := repository.NewDeviceRepository(db).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "UID\tNAME\tMESSAGE\tALERT\tLAST SEEN")
	fmt.Fprintln(w, "---\t----\t-------\t-----\t---------")
	for _, d := range devices {
		ref := "-"
		if d.LiveMessageRef != nil {
			ref = *d.LiveMessageRef
		}
		seen := "never"
		if d.LastSeenAt != nil {
			seen = d.LastSeenAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", d.UID, d.Name, ref, d.AlertActive, seen)
	}
	return nil
}
