package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mailfleet/mailfleet/internal/config"
	"github.com/mailfleet/mailfleet/internal/deadletter"
)

var deadletterCmd = &cobra.Command{
	Use:   "deadletter",
	Short: "Dead letter store commands",
}

var deadletterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List failed deliveries",
	RunE:  runDeadletterList,
}

var deadletterRemoveCmd = &cobra.Command{
	Use:   "remove [entry-id]",
	Short: "Remove a dead letter entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeadletterRemove,
}

var deadletterLimit int

func init() {
	deadletterListCmd.Flags().IntVar(&deadletterLimit, "limit", 50, "Maximum entries to show")

	deadletterCmd.AddCommand(deadletterListCmd)
	deadletterCmd.AddCommand(deadletterRemoveCmd)

	deadletterCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/mailfleet/config.yaml", "Path to configuration file")
}

func openDeadLetters() (*deadletter.Store, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return deadletter.Open(cfg.DeadLetter.Path)
}

func runDeadletterList(cmd *cobra.Command, args []string) error {
	store, err := openDeadLetters()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(deadletterLimit)
	if err != nil {
		return err
	}

	total, err := store.Count()
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-36s  %-30s  %-10s  %s\n", "ID", "Campaign", "Email", "Phase", "Failed At")
	fmt.Println(strings.Repeat("-", 130))
	for _, e := range entries {
		fmt.Printf("%-36s  %-36s  %-30s  %-10s  %s\n",
			e.ID, e.CampaignID, e.Email, e.Phase, e.FailedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("\n%d of %d entries shown\n", len(entries), total)
	return nil
}

func runDeadletterRemove(cmd *cobra.Command, args []string) error {
	store, err := openDeadLetters()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("Entry %s removed\n", args[0])
	return nil
}
