package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mailfleet/mailfleet/internal/models"
	"github.com/mailfleet/mailfleet/internal/schedule"
)

// DispatchResult aggregates one dispatcher invocation
type DispatchResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// ProcessScheduledCampaigns finds due campaigns and sends them. Campaigns
// are processed independently: one campaign's failure never aborts the
// loop. Subscribers that already have a delivery log for a campaign are
// excluded up front, which makes a retried invocation skip recipients the
// previous attempt already reached.
func (e *Engine) ProcessScheduledCampaigns(ctx context.Context) (DispatchResult, error) {
	var res DispatchResult
	now := e.now()

	due, err := e.campaigns.GetDue(now)
	if err != nil {
		return res, fmt.Errorf("failed to load due campaigns: %w", err)
	}
	e.metrics.DueCampaigns.Set(float64(len(due)))

	for i := range due {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		c := &due[i]
		res.Processed++
		e.metrics.CampaignsProcessedTotal.Inc()

		ok, err := e.processCampaign(ctx, c, now)
		if err != nil {
			e.logger.Error("campaign processing failed", "campaign_id", c.ID, "name", c.Name, "error", err)
		}
		if ok {
			res.Sent++
			e.metrics.CampaignsSentTotal.Inc()
		} else {
			res.Failed++
			e.metrics.CampaignsFailedTotal.Inc()
		}
	}

	return res, nil
}

// processCampaign handles a single due campaign. A returned error means
// the campaign was aborted by a persistence failure; a false result with
// nil error means it was marked failed.
func (e *Engine) processCampaign(ctx context.Context, c *models.Campaign, now time.Time) (bool, error) {
	eligible, err := e.subscribers.GetEligible(c.ID)
	if err != nil {
		return false, err
	}

	if len(eligible) == 0 {
		e.logger.Warn("campaign has no eligible subscribers", "campaign_id", c.ID, "name", c.Name)
		if err := e.campaigns.MarkFailed(c.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	if c.ABTestEnabled {
		result, err := e.SendABTest(ctx, c, eligible)
		if err != nil {
			if mErr := e.campaigns.MarkFailed(c.ID); mErr != nil {
				e.logger.Error("failed to mark campaign failed", "campaign_id", c.ID, "error", mErr)
			}
			return false, err
		}
		if err := e.campaigns.MarkABTesting(c.ID, now); err != nil {
			return false, err
		}
		e.metrics.ABTestsStartedTotal.Inc()
		e.logger.Info("A/B test started",
			"campaign_id", c.ID, "name", c.Name,
			"group_a", result.GroupASent, "group_b", result.GroupBSent)
		return true, nil
	}

	subject, fromName := variantContent(c, models.VariantNone)
	sent, allOK, err := e.sendToRecipients(ctx, c, eligible, models.VariantNone, subject, fromName, "dispatch", now)
	if err != nil {
		return false, err
	}
	if !allOK {
		// Partial delivery logs from the partial batch are preserved for
		// diagnosis; a re-run only retries the unlogged recipients.
		e.logger.Warn("campaign send incomplete", "campaign_id", c.ID, "sent", sent, "total", len(eligible))
		if c.Recurring() {
			// A transient failure does not end the recurrence: the next
			// cycle retries the recipients that have no delivery log.
			if err := e.reschedule(c, now); err != nil {
				return false, err
			}
			return false, nil
		}
		if err := e.campaigns.MarkFailed(c.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	if c.Recurring() {
		return true, e.reschedule(c, now)
	}

	if err := e.campaigns.MarkSent(c.ID, now, len(eligible)); err != nil {
		return false, err
	}
	e.logger.Info("campaign sent", "campaign_id", c.ID, "name", c.Name, "recipients", sent)
	return true, nil
}

// reschedule keeps a recurring campaign in 'scheduled' with its next fire
// time. A malformed schedule config is a configuration error: the
// campaign is marked failed and not retried.
func (e *Engine) reschedule(c *models.Campaign, now time.Time) error {
	cfg, err := c.ParseScheduleConfig()
	if err != nil {
		e.logger.Error("invalid schedule config", "campaign_id", c.ID, "error", err)
		return e.campaigns.MarkFailed(c.ID)
	}

	next, err := schedule.NextRun(c.ScheduleType, cfg, now)
	if err != nil {
		e.logger.Error("failed to compute next run", "campaign_id", c.ID, "error", err)
		return e.campaigns.MarkFailed(c.ID)
	}

	if err := e.campaigns.Reschedule(c.ID, now, next); err != nil {
		return err
	}
	e.logger.Info("campaign rescheduled", "campaign_id", c.ID, "name", c.Name, "next_run", next)
	return nil
}
