// Package server wires the application together: database, mailer,
// delivery engine, background worker and the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mailfleet/mailfleet/internal/api"
	"github.com/mailfleet/mailfleet/internal/config"
	"github.com/mailfleet/mailfleet/internal/db"
	"github.com/mailfleet/mailfleet/internal/deadletter"
	"github.com/mailfleet/mailfleet/internal/dkim"
	"github.com/mailfleet/mailfleet/internal/engine"
	"github.com/mailfleet/mailfleet/internal/mailer"
	"github.com/mailfleet/mailfleet/internal/metrics"
	"github.com/mailfleet/mailfleet/internal/worker"
)

type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *db.DB
	deadLetters *deadletter.Store
	http        *http.Server
	worker      *worker.Worker
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	deadLetters, err := deadletter.Open(cfg.DeadLetter.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter store: %w", err)
	}

	m := mailer.NewSMTPMailer(cfg.SMTP, logger)
	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to load DKIM key: %w", err)
		}
		m.SetDKIMSigner(signer)
		logger.Info("DKIM signing enabled", "domain", cfg.DKIM.Domain, "selector", cfg.DKIM.Selector)
	}

	mx := metrics.New()
	eng := engine.New(database.DB, m, deadLetters, mx, logger, engine.Config{
		TrackingBaseURL: cfg.Tracking.BaseURL,
	})

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		db:          database,
		deadLetters: deadLetters,
		worker:      worker.New(eng, logger, cfg.Engine.PollInterval),
	}

	apiServer := api.NewServer(cfg, database.DB, eng, mx, logger)
	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	s.worker.Start()

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", s.cfg.Server.ListenAddr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.worker.Stop()
		s.deadLetters.Close()
		s.db.Close()
		return err
	case <-ctx.Done():
		s.worker.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
		s.deadLetters.Close()
		s.db.Close()
		return nil
	}
}
