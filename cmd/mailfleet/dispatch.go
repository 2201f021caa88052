package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mailfleet/mailfleet/internal/config"
	"github.com/mailfleet/mailfleet/internal/db"
	"github.com/mailfleet/mailfleet/internal/deadletter"
	"github.com/mailfleet/mailfleet/internal/dkim"
	"github.com/mailfleet/mailfleet/internal/engine"
	"github.com/mailfleet/mailfleet/internal/mailer"
	"github.com/mailfleet/mailfleet/internal/metrics"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Process due campaigns once and exit",
	Long:  `Runs one delivery engine pass over all due campaigns. Intended for cron-driven deployments that do not run the built-in worker.`,
	RunE:  runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/mailfleet/config.yaml", "Path to configuration file")
}

func runDispatch(cmd *cobra.Command, args []string) error {
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

	res, err := eng.ProcessScheduledCampaigns(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d campaigns: %d sent, %d failed\n", res.Processed, res.Sent, res.Failed)
	return nil
}

// buildEngine assembles the engine with the same wiring the server uses.
// The returned cleanup closes the underlying stores.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, err
	}

	deadLetters, err := deadletter.Open(cfg.DeadLetter.Path)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	m := mailer.NewSMTPMailer(cfg.SMTP, logger)
	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			deadLetters.Close()
			database.Close()
			return nil, nil, fmt.Errorf("failed to load DKIM key: %w", err)
		}
		m.SetDKIMSigner(signer)
	}

	eng := engine.New(database.DB, m, deadLetters, metrics.New(), logger, engine.Config{
		TrackingBaseURL: cfg.Tracking.BaseURL,
	})

	cleanup := func() {
		deadLetters.Close()
		database.Close()
	}
	return eng, cleanup, nil
}
