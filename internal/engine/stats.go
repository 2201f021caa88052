package engine

import (
	"fmt"

	"github.com/mailfleet/mailfleet/internal/models"
)

// Weights of the engagement score. Opens dominate because click volume is
// an order of magnitude smaller.
const (
	openWeight  = 0.7
	clickWeight = 0.3
)

// Score combines open and click rates into a single ranking value
func Score(openRate, clickRate float64) float64 {
	return openRate*openWeight + clickRate*clickWeight
}

// BuildVariantStats derives rates and score from raw delivery counts. A
// variant that sent nothing scores zero rather than dividing by zero.
func BuildVariantStats(c models.VariantCounts) models.VariantStats {
	s := models.VariantStats{
		Sent:    c.Sent,
		Opened:  c.Opened,
		Clicked: c.Clicked,
	}
	if c.Sent > 0 {
		s.OpenRate = float64(c.Opened) / float64(c.Sent)
		s.ClickRate = float64(c.Clicked) / float64(c.Sent)
	}
	s.Score = Score(s.OpenRate, s.ClickRate)
	return s
}

// ABTestStats aggregates delivery outcomes per variant for a campaign
func (e *Engine) ABTestStats(campaignID string) (models.ABStats, error) {
	var stats models.ABStats

	countsA, err := e.deliveries.VariantCounts(campaignID, models.VariantA)
	if err != nil {
		return stats, fmt.Errorf("failed to count variant A: %w", err)
	}
	countsB, err := e.deliveries.VariantCounts(campaignID, models.VariantB)
	if err != nil {
		return stats, fmt.Errorf("failed to count variant B: %w", err)
	}

	stats.VariantA = BuildVariantStats(countsA)
	stats.VariantB = BuildVariantStats(countsB)
	return stats, nil
}
