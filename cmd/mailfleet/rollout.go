package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailfleet/mailfleet/internal/config"
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout [campaign-id]",
	Short: "Roll out the A/B test winner for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollout,
}

func init() {
	rolloutCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/mailfleet/config.yaml", "Path to configuration file")
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	eng, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.SendABTestWinner(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Winner %s rolled out to %d remaining recipients\n", res.Winner, res.RemainingSent)
	return nil
}
