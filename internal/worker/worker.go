// Package worker runs the periodic trigger for the delivery engine: a
// reference implementation of the external cadence caller. Deployments
// that prefer cron can run the one-shot `dispatch` and `rollout` CLI
// commands instead; the engine is correct either way, however many times
// it is invoked.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mailfleet/mailfleet/internal/engine"
)

// Worker ticks the delivery engine in the background
type Worker struct {
	engine       *engine.Engine
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new worker
func New(eng *engine.Engine, logger *slog.Logger, pollInterval time.Duration) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		engine:       eng,
		logger:       logger.With("component", "worker"),
		pollInterval: pollInterval,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the worker
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("worker started", "poll_interval", w.pollInterval)
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Worker) tick() {
	res, err := w.engine.ProcessScheduledCampaigns(w.ctx)
	if err != nil {
		w.logger.Error("dispatch failed", "error", err)
	} else if res.Processed > 0 {
		w.logger.Info("dispatch completed", "processed", res.Processed, "sent", res.Sent, "failed", res.Failed)
	}

	w.rolloutDueWinners()
}

// rolloutDueWinners finishes every A/B campaign whose wait window has
// elapsed since the test send. Each campaign is handled independently.
func (w *Worker) rolloutDueWinners() {
	testing, err := w.engine.Campaigns().GetABTesting()
	if err != nil {
		w.logger.Error("failed to load A/B testing campaigns", "error", err)
		return
	}

	now := w.now()
	for _, c := range testing {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if c.ABTestSentAt == nil {
			continue
		}
		due := c.ABTestSentAt.Add(time.Duration(c.ABWaitHours) * time.Hour)
		if now.Before(due) {
			continue
		}

		res, err := w.engine.SendABTestWinner(w.ctx, c.ID)
		if err != nil {
			w.logger.Error("winner rollout failed", "campaign_id", c.ID, "error", err)
			continue
		}
		w.logger.Info("winner rollout done", "campaign_id", c.ID, "winner", res.Winner, "remaining_sent", res.RemainingSent)
	}
}
