package engine

import (
	"context"
	"fmt"

	"github.com/mailfleet/mailfleet/internal/models"
)

// DetermineWinner picks the variant with the higher score. Ties resolve to
// A, which has send-order priority as the original content.
func DetermineWinner(a, b models.VariantStats) models.ABVariant {
	if a.Score >= b.Score {
		return models.VariantA
	}
	return models.VariantB
}

// RolloutResult summarizes a winner rollout
type RolloutResult struct {
	Winner        models.ABVariant `json:"winner"`
	RemainingSent int              `json:"remaining_sent"`
}

// SendABTestWinner scores the test phase, sends the winning variant to the
// frozen remainder audience and completes the campaign.
//
// Invoking it again on a completed campaign is a no-op returning the
// recorded winner: ab_winner and the campaign status are the idempotency
// guard. If a rollout fails mid-batch the campaign stays in ab_testing
// with its remainder snapshot intact; the retried invocation skips every
// subscriber that already has a delivery log, so nobody is mailed twice.
func (e *Engine) SendABTestWinner(ctx context.Context, campaignID string) (*RolloutResult, error) {
	c, err := e.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}

	if c.Status == models.CampaignSent || c.ABWinner != models.VariantNone {
		e.logger.Info("winner rollout already completed", "campaign_id", c.ID, "winner", c.ABWinner)
		return &RolloutResult{Winner: c.ABWinner, RemainingSent: 0}, nil
	}
	if c.Status != models.CampaignABTesting {
		return nil, fmt.Errorf("campaign %s is not in A/B testing (status %s)", campaignID, c.Status)
	}

	now := e.now()

	stats, err := e.ABTestStats(c.ID)
	if err != nil {
		return nil, err
	}
	winner := DetermineWinner(stats.VariantA, stats.VariantB)

	remainingIDs, err := e.remainders.Get(c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rollout audience: %w", err)
	}
	if remainingIDs == nil {
		e.logger.Warn("no remainder snapshot for campaign, completing with empty rollout", "campaign_id", c.ID)
		remainingIDs = []string{}
	}

	subs, err := e.subscribers.GetByIDs(remainingIDs)
	if err != nil {
		return nil, err
	}

	// Skip recipients a previous, partially failed rollout already
	// reached.
	logged, err := e.deliveries.LoggedSubscriberIDs(c.ID)
	if err != nil {
		return nil, err
	}
	toSend := make([]models.Subscriber, 0, len(subs))
	for _, s := range subs {
		if !logged[s.ID] {
			toSend = append(toSend, s)
		}
	}

	subject, fromName := variantContent(c, winner)
	sent, allOK, err := e.sendToRecipients(ctx, c, toSend, winner, subject, fromName, "rollout", now)
	if err != nil {
		return nil, err
	}
	if !allOK {
		// Keep status and snapshot so the trigger can retry.
		return nil, fmt.Errorf("rollout incomplete for campaign %s: %d of %d sent", c.ID, sent, len(toSend))
	}

	total, err := e.deliveries.DistinctRecipientCount(c.ID)
	if err != nil {
		return nil, err
	}
	if err := e.remainders.Delete(c.ID); err != nil {
		return nil, err
	}
	if err := e.campaigns.CompleteABTest(c.ID, winner, now, total); err != nil {
		return nil, err
	}

	e.metrics.ABRolloutsTotal.WithLabelValues(string(winner)).Inc()
	e.logger.Info("winner rollout completed",
		"campaign_id", c.ID, "winner", winner, "remaining_sent", sent, "total_recipients", total)

	return &RolloutResult{Winner: winner, RemainingSent: sent}, nil
}
